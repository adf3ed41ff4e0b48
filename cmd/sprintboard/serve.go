package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sprintboard/internal/config"
	"sprintboard/internal/server"
)

func serveCmd(cfg *config.Config, flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and serve the board frontend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.DBDriver = flags.dbDriver
			cfg.DBDSN = flags.dbDSN
			cfg.LogLevel = flags.logLevel
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, flags)
		},
	}

	cmd.Flags().StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	cmd.Flags().StringVar(&cfg.StaticDir, "static", cfg.StaticDir, "directory with the built frontend")
	cmd.Flags().BoolVar(&cfg.CookieSecure, "cookie-secure", cfg.CookieSecure, "mark the session cookie Secure")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, flags *rootFlags) error {
	logger := flags.logger()
	logger.Info("sprintboard", slog.String("version", Version), slog.String("driver", cfg.DBDriver))

	store, err := flags.openStore(logger)
	if err != nil {
		return err
	}
	defer store.Close()

	srv := server.New(store, logger, server.Options{
		StaticDir:     cfg.StaticDir,
		SessionSecret: cfg.SessionSecret,
		CookieSecure:  cfg.CookieSecure,
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
		return err
	}

	logger.Info("server stopped")
	return nil
}
