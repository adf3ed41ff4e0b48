package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"sprintboard/internal/config"
	"sprintboard/internal/storage"
)

var Version = "dev"

// rootFlags are shared by every subcommand that opens the database.
type rootFlags struct {
	dbDriver string
	dbDSN    string
	logLevel string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.Load()
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:           "sprintboard",
		Short:         "Sprint, daily and project tracking backend",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.dbDriver, "db-driver", cfg.DBDriver, "database driver (sqlite3 or pgx)")
	rootCmd.PersistentFlags().StringVar(&flags.dbDSN, "db", cfg.DBDSN, "sqlite file path or Postgres connection string")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd(cfg, flags))
	rootCmd.AddCommand(createAdminCmd(flags))
	rootCmd.AddCommand(seedCmd(flags))
	rootCmd.AddCommand(boardCmd())

	return rootCmd
}

func (f *rootFlags) logger() *slog.Logger {
	level := (&config.Config{LogLevel: f.logLevel}).Level()
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func (f *rootFlags) openStore(logger *slog.Logger) (*storage.Store, error) {
	store, err := storage.Open(f.dbDriver, f.dbDSN, logger)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}
	return store, nil
}
