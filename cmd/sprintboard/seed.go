package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"sprintboard/internal/models"
	"sprintboard/internal/storage"
)

// seedFile is the YAML layout accepted by the seed command.
type seedFile struct {
	Users    []seedUser    `yaml:"users"`
	Projects []seedProject `yaml:"projects"`
}

type seedUser struct {
	Name     string      `yaml:"name"`
	Email    string      `yaml:"email"`
	Password string      `yaml:"password"`
	Role     models.Role `yaml:"role"`
}

type seedProject struct {
	Name         string       `yaml:"name"`
	Description  string       `yaml:"description"`
	DeliveryDate string       `yaml:"deliveryDate"`
	Owner        string       `yaml:"owner"`
	Members      []string     `yaml:"members"`
	Sprints      []seedSprint `yaml:"sprints"`
}

type seedSprint struct {
	Name         string      `yaml:"name"`
	DeliveryDate string      `yaml:"deliveryDate"`
	Dailies      []seedDaily `yaml:"dailies"`
}

type seedDaily struct {
	Name         string     `yaml:"name"`
	Description  string     `yaml:"description"`
	DeliveryDate string     `yaml:"deliveryDate"`
	Tag          models.Tag `yaml:"tag"`
}

type seedResult struct {
	UsersCreated int
	UsersSkipped int
	Projects     int
	Sprints      int
	Dailies      int
}

func seedCmd(flags *rootFlags) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load users, projects, sprints and dailies from a YAML file",
		Example: `  sprintboard seed --file seed.yaml
  sprintboard seed --db-driver pgx --db postgres://localhost/sprintboard --file seed.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open seed file: %w", err)
			}
			defer f.Close()

			data, err := parseSeed(f)
			if err != nil {
				return err
			}

			store, err := flags.openStore(flags.logger())
			if err != nil {
				return err
			}
			defer store.Close()

			res, err := applySeed(cmd.Context(), store, data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "users created: %d (existing: %d), projects: %d, sprints: %d, dailies: %d\n",
				res.UsersCreated, res.UsersSkipped, res.Projects, res.Sprints, res.Dailies)
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "file", "f", "seed.yaml", "seed file")
	return cmd
}

func parseSeed(r io.Reader) (seedFile, error) {
	var data seedFile
	raw, err := io.ReadAll(r)
	if err != nil {
		return data, fmt.Errorf("failed to read seed file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return data, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return data, nil
}

// applySeed creates the seeded records. Users are matched by email and existing ones are
// left untouched; projects are always created.
func applySeed(ctx context.Context, store *storage.Store, data seedFile) (seedResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var res seedResult

	existing, err := store.ListUsers(ctx)
	if err != nil {
		return res, err
	}
	byEmail := make(map[string]int64, len(existing))
	for _, u := range existing {
		byEmail[u.Email] = u.ID
	}

	for _, su := range data.Users {
		email := strings.ToLower(strings.TrimSpace(su.Email))
		if _, ok := byEmail[email]; ok {
			res.UsersSkipped++
			continue
		}
		u, err := store.CreateUser(ctx, storage.NewUser{Name: su.Name, Email: email, Password: su.Password, Role: su.Role})
		if err != nil {
			return res, fmt.Errorf("user %s: %w", email, err)
		}
		byEmail[u.Email] = u.ID
		res.UsersCreated++
	}

	lookup := func(email string) (int64, error) {
		id, ok := byEmail[strings.ToLower(strings.TrimSpace(email))]
		if !ok {
			return 0, fmt.Errorf("unknown user %q", email)
		}
		return id, nil
	}

	for _, sp := range data.Projects {
		ownerID, err := lookup(sp.Owner)
		if err != nil {
			return res, fmt.Errorf("project %s owner: %w", sp.Name, err)
		}
		memberIDs := make([]int64, 0, len(sp.Members))
		for _, m := range sp.Members {
			id, err := lookup(m)
			if err != nil {
				return res, fmt.Errorf("project %s member: %w", sp.Name, err)
			}
			memberIDs = append(memberIDs, id)
		}

		project, err := store.CreateProject(ctx, storage.NewProject{
			Name:         sp.Name,
			Description:  sp.Description,
			DeliveryDate: sp.DeliveryDate,
			OwnerID:      ownerID,
			MemberIDs:    memberIDs,
		})
		if err != nil {
			return res, fmt.Errorf("project %s: %w", sp.Name, err)
		}
		res.Projects++

		for _, ss := range sp.Sprints {
			sprint, err := store.CreateSprint(ctx, project.ID, ss.Name, ss.DeliveryDate, ownerID)
			if err != nil {
				return res, fmt.Errorf("sprint %s: %w", ss.Name, err)
			}
			res.Sprints++

			for _, sd := range ss.Dailies {
				if _, err := store.CreateDaily(ctx, storage.NewDaily{
					ProjectID:    project.ID,
					SprintID:     sprint.ID,
					Name:         sd.Name,
					Description:  sd.Description,
					DeliveryDate: sd.DeliveryDate,
					Tag:          sd.Tag,
					CreatorID:    ownerID,
				}); err != nil {
					return res, fmt.Errorf("daily %s: %w", sd.Name, err)
				}
				res.Dailies++
			}
		}
	}
	return res, nil
}
