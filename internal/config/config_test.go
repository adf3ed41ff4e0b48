package config

import (
	"log/slog"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"SPRINTBOARD_ADDR", "SPRINTBOARD_DB_DRIVER", "SPRINTBOARD_DB_DSN", "SPRINTBOARD_COOKIE_SECURE"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Addr != ":8080" || cfg.DBDriver != "sqlite3" || cfg.DBDSN != "data/sprintboard.db" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.CookieSecure {
		t.Error("cookie secure should default to false")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SPRINTBOARD_ADDR", ":9999")
	t.Setenv("SPRINTBOARD_DB_DRIVER", "pgx")
	t.Setenv("SPRINTBOARD_COOKIE_SECURE", "true")
	t.Setenv("SPRINTBOARD_LOG_LEVEL", "debug")

	cfg := Load()
	if cfg.Addr != ":9999" || cfg.DBDriver != "pgx" || !cfg.CookieSecure {
		t.Errorf("env not applied: %+v", cfg)
	}
	if cfg.Level() != slog.LevelDebug {
		t.Errorf("level = %v", cfg.Level())
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{DBDSN: "x.db", SessionSecret: "short"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected short secret to be rejected")
	}
	cfg.SessionSecret = strings.Repeat("k", 32)
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	cfg.DBDSN = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected empty dsn to be rejected")
	}
}
