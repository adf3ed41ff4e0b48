package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"

	"sprintboard/internal/util"
)

// Config holds the process settings. Values come from the environment, optionally
// seeded from a .env file, and may be overridden by command-line flags.
type Config struct {
	Addr          string
	DBDriver      string
	DBDSN         string
	StaticDir     string
	SessionSecret string
	CookieSecure  bool
	LogLevel      string
}

// Load reads .env (when present) and the SPRINTBOARD_* variables.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Addr:          util.EnvOrDefault("SPRINTBOARD_ADDR", ":8080"),
		DBDriver:      util.EnvOrDefault("SPRINTBOARD_DB_DRIVER", "sqlite3"),
		DBDSN:         util.EnvOrDefault("SPRINTBOARD_DB_DSN", "data/sprintboard.db"),
		StaticDir:     util.EnvOrDefault("SPRINTBOARD_STATIC_DIR", "web/dist"),
		SessionSecret: util.EnvOrDefault("SPRINTBOARD_SESSION_SECRET", ""),
		CookieSecure:  util.EnvBool("SPRINTBOARD_COOKIE_SECURE", false),
		LogLevel:      util.EnvOrDefault("SPRINTBOARD_LOG_LEVEL", "info"),
	}
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	if c.DBDSN == "" {
		return fmt.Errorf("SPRINTBOARD_DB_DSN is not set")
	}
	if len(c.SessionSecret) < 32 {
		return fmt.Errorf("SPRINTBOARD_SESSION_SECRET must be at least 32 bytes")
	}
	return nil
}

// Level maps LogLevel to a slog level, defaulting to info.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
