package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"sprintboard/internal/models"
	"sprintboard/internal/storage"
	"sprintboard/internal/util"
)

type adminOptions struct {
	name     string
	email    string
	password string
	force    bool
}

func createAdminCmd(flags *rootFlags) *cobra.Command {
	opts := &adminOptions{}

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an Admin account unless one already exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := flags.openStore(flags.logger())
			if err != nil {
				return err
			}
			defer store.Close()

			user, created, err := createAdmin(cmd.Context(), store, *opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !created {
				fmt.Fprintln(out, "an admin account already exists; use --force to add another")
				return nil
			}
			fmt.Fprintf(out, "admin created: id=%d email=%s\n", user.ID, user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", util.EnvOrDefault("SPRINTBOARD_ADMIN_NAME", "Administrator"), "display name")
	cmd.Flags().StringVar(&opts.email, "email", util.EnvOrDefault("SPRINTBOARD_ADMIN_EMAIL", "admin@sprintboard.local"), "login email")
	cmd.Flags().StringVar(&opts.password, "password", util.EnvOrDefault("SPRINTBOARD_ADMIN_PASSWORD", ""), "login password")
	cmd.Flags().BoolVar(&opts.force, "force", false, "create even if an admin already exists")

	return cmd
}

func createAdmin(ctx context.Context, store *storage.Store, opts adminOptions) (models.User, bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.password == "" {
		return models.User{}, false, fmt.Errorf("admin password is required (--password or SPRINTBOARD_ADMIN_PASSWORD)")
	}

	if !opts.force {
		count, err := store.CountUsersWithRole(ctx, models.RoleAdmin)
		if err != nil {
			return models.User{}, false, fmt.Errorf("failed to check admin users: %w", err)
		}
		if count > 0 {
			return models.User{}, false, nil
		}
	}

	user, err := store.CreateUser(ctx, storage.NewUser{
		Name:     opts.name,
		Email:    opts.email,
		Password: opts.password,
		Role:     models.RoleAdmin,
	})
	if err != nil {
		return models.User{}, false, fmt.Errorf("failed to create admin: %w", err)
	}
	return user, true, nil
}
