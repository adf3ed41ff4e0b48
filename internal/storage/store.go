package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"sprintboard/internal/apperr"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Store wraps access to the relational database and exposes the project, sprint and daily workflows.
type Store struct {
	db      *sql.DB
	dialect dialect
	logger  *slog.Logger
	now     func() time.Time
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open connects to the database behind driver and dsn and runs the migrations.
// For sqlite the dsn is a file path.
func Open(driver, dsn string, logger *slog.Logger) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty database dsn")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	source := dsn
	if driver == DriverSQLite {
		if !strings.HasPrefix(dsn, "file:") {
			if err := ensureDir(dsn); err != nil {
				return nil, err
			}
		}
		source = sqliteSource(dsn)
	}

	conn, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		conn.SetMaxOpenConns(1)
		conn.SetConnMaxLifetime(0)
	}

	s := &Store{db: conn, dialect: d, logger: logger, now: time.Now}
	if driver == DriverSQLite {
		if err := s.checkSQLiteVersion(); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	logger.Info("database ready", slog.String("driver", driver))
	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// sqliteSource turns a file path or file: URI into a DSN with foreign keys enforced and a
// busy timeout. Parameters already present in a file: URI are kept.
func sqliteSource(dsn string) string {
	if !strings.HasPrefix(dsn, "file:") {
		return fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=ON", dsn)
	}

	var params []string
	if !strings.Contains(dsn, "_foreign_keys=") && !strings.Contains(dsn, "_fk=") {
		params = append(params, "_foreign_keys=ON")
	}
	if !strings.Contains(dsn, "_busy_timeout=") && !strings.Contains(dsn, "_timeout=") {
		params = append(params, "_busy_timeout=5000")
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

// minSQLiteVersion is the oldest bundled SQLite the store accepts.
const minSQLiteVersion = "3.35.0"

func (s *Store) checkSQLiteVersion() error {
	var version string
	if err := s.db.QueryRow(`SELECT sqlite_version()`).Scan(&version); err != nil {
		return fmt.Errorf("read sqlite version: %w", err)
	}
	if !versionAtLeast(version, minSQLiteVersion) {
		return fmt.Errorf("sqlite %s is too old, need %s or newer (check the github.com/mattn/go-sqlite3 version in go.mod)",
			version, minSQLiteVersion)
	}
	s.logger.Debug("sqlite version", slog.String("version", version))
	return nil
}

// versionAtLeast compares dotted numeric versions. Missing parts count as zero.
func versionAtLeast(version, min string) bool {
	have := strings.Split(strings.TrimSpace(version), ".")
	want := strings.Split(min, ".")
	for i := 0; i < len(want) || i < len(have); i++ {
		h, w := versionPart(have, i), versionPart(want, i)
		if h != w {
			return h > w
		}
	}
	return true
}

func versionPart(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	n, err := strconv.Atoi(parts[i])
	if err != nil {
		return -1
	}
	return n
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) migrate() error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// inTx runs fn inside a transaction. Errors that already carry a kind are returned as they are;
// anything else becomes a transaction failure described by op. The transaction is always
// rolled back on error.
func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Tx(op, fmt.Errorf("begin: %w", err))
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Error("rollback failed", slog.String("op", op), slog.String("error", rbErr.Error()))
		}
		if apperr.KindOf(err) != "" {
			return err
		}
		s.logger.Error("transaction rolled back", slog.String("op", op), slog.String("error", err.Error()))
		return apperr.Tx(op, err)
	}

	if err := tx.Commit(); err != nil {
		return apperr.Tx(op, fmt.Errorf("commit: %w", err))
	}
	return nil
}

// insertID executes an INSERT and returns the new row id: LastInsertId on sqlite,
// RETURNING id on Postgres, whose driver has no LastInsertId.
func (s *Store) insertID(ctx context.Context, q querier, query string, args ...any) (int64, error) {
	if !s.dialect.positional {
		res, err := q.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, err
		}
		return res.LastInsertId()
	}

	var id int64
	if err := q.QueryRowContext(ctx, s.dialect.rebind(query+` RETURNING id`), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) exec(ctx context.Context, q querier, query string, args ...any) (int64, error) {
	res, err := q.ExecContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) query(ctx context.Context, q querier, query string, args ...any) (*sql.Rows, error) {
	return q.QueryContext(ctx, s.dialect.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, q querier, query string, args ...any) *sql.Row {
	return q.QueryRowContext(ctx, s.dialect.rebind(query), args...)
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// normalizeDate accepts YYYY-MM-DD or an RFC 3339 timestamp and returns YYYY-MM-DD.
func normalizeDate(field, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apperr.Validation("%s is required", field)
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t.Format(time.DateOnly), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.Format(time.DateOnly), nil
	}
	return "", apperr.Validation("%s must be a date in YYYY-MM-DD format", field)
}
