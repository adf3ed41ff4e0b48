package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"sprintboard/internal/board"
	"sprintboard/internal/client"
	"sprintboard/internal/models"
	"sprintboard/internal/util"
)

type boardOptions struct {
	serverURL string
	email     string
	password  string
	projectID int64
	sprintID  int64
	move      string
	asYAML    bool
}

func boardCmd() *cobra.Command {
	opts := &boardOptions{}

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show a project's board from a running server, optionally moving one daily",
		Example: `  sprintboard board --project 3
  sprintboard board --project 3 --sprint 7 --move 42=done`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.projectID <= 0 {
				return fmt.Errorf("--project is required")
			}

			ctx := cmd.Context()
			c, err := client.New(opts.serverURL)
			if err != nil {
				return err
			}
			if _, err := c.Login(ctx, opts.email, opts.password); err != nil {
				return fmt.Errorf("login: %w", err)
			}

			b := board.New(c, opts.projectID, (&rootFlags{logLevel: "warn"}).logger())
			if err := b.Load(ctx); err != nil {
				return err
			}
			if opts.sprintID != 0 {
				if err := b.Select(opts.sprintID); err != nil {
					return err
				}
			}

			if opts.move != "" {
				dailyID, tag, err := parseMove(opts.move)
				if err != nil {
					return err
				}
				if err := b.BeginDrag(dailyID); err != nil {
					return err
				}
				change, err := b.Drop(ctx, tag)
				if err != nil {
					return fmt.Errorf("move daily %d: %s: %w", dailyID, change.Status, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "daily %d: %s -> %s (%s)\n", dailyID, change.From, change.To, change.Status)
			}

			if opts.asYAML {
				return writeBoardYAML(cmd.OutOrStdout(), b)
			}
			writeBoard(cmd.OutOrStdout(), b)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.serverURL, "server", util.EnvOrDefault("SPRINTBOARD_URL", "http://localhost:8080"), "server base URL")
	cmd.Flags().StringVar(&opts.email, "email", util.EnvOrDefault("SPRINTBOARD_EMAIL", ""), "login email")
	cmd.Flags().StringVar(&opts.password, "password", util.EnvOrDefault("SPRINTBOARD_PASSWORD", ""), "login password")
	cmd.Flags().Int64Var(&opts.projectID, "project", 0, "project id")
	cmd.Flags().Int64Var(&opts.sprintID, "sprint", 0, "sprint id (default: first sprint)")
	cmd.Flags().StringVar(&opts.move, "move", "", "move a daily, as <dailyId>=<pending|progress|done>")
	cmd.Flags().BoolVar(&opts.asYAML, "yaml", false, "print the board as YAML")

	return cmd
}

var tagAliases = map[string]models.Tag{
	"pending":     models.TagPending,
	"progress":    models.TagInProgress,
	"in-progress": models.TagInProgress,
	"done":        models.TagCompleted,
	"completed":   models.TagCompleted,
}

// parseMove reads "<dailyId>=<tag>", where tag is an alias or a stored tag value.
func parseMove(s string) (int64, models.Tag, error) {
	idPart, tagPart, ok := strings.Cut(s, "=")
	if !ok {
		return 0, "", fmt.Errorf("invalid --move %q, want <dailyId>=<tag>", s)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(idPart), 10, 64)
	if err != nil || id <= 0 {
		return 0, "", fmt.Errorf("invalid daily id %q", idPart)
	}
	tagPart = strings.TrimSpace(tagPart)
	if tag, ok := tagAliases[strings.ToLower(tagPart)]; ok {
		return id, tag, nil
	}
	if tag := models.Tag(tagPart); tag.Valid() {
		return id, tag, nil
	}
	return 0, "", fmt.Errorf("unknown tag %q", tagPart)
}

func writeBoard(w io.Writer, b *board.Board) {
	selected := b.Selected()
	for _, sp := range b.Sprints() {
		marker := " "
		if sp.ID == selected {
			marker = "*"
		}
		fmt.Fprintf(w, "%s sprint %d  %s  (due %s)\n", marker, sp.ID, sp.Name, sp.DeliveryDate)
	}
	if selected == 0 {
		fmt.Fprintln(w, "no active sprint")
		return
	}

	lanes := b.Lanes()
	for _, tag := range models.Tags {
		ds := lanes.For(tag)
		fmt.Fprintf(w, "\n[%s] %d\n", tag, len(ds))
		for _, d := range ds {
			fmt.Fprintf(w, "  #%d %s  (due %s)\n", d.ID, d.Name, d.DeliveryDate)
		}
	}
}

func writeBoardYAML(w io.Writer, b *board.Board) error {
	out := struct {
		ProjectID int64               `yaml:"projectId"`
		Selected  int64               `yaml:"selectedSprint"`
		Sprints   []models.Sprint     `yaml:"sprints"`
		Lanes     map[string][]string `yaml:"lanes"`
	}{
		ProjectID: b.ProjectID(),
		Selected:  b.Selected(),
		Sprints:   b.Sprints(),
		Lanes:     map[string][]string{},
	}
	lanes := b.Lanes()
	for _, tag := range models.Tags {
		names := []string{}
		for _, d := range lanes.For(tag) {
			names = append(names, fmt.Sprintf("#%d %s", d.ID, d.Name))
		}
		out.Lanes[string(tag)] = names
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode board: %w", err)
	}
	return enc.Close()
}
