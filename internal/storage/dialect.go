package storage

import (
	"fmt"
	"strconv"
	"strings"
)

// dialect holds what differs between the supported databases: the DDL and the
// placeholder style. Queries are written with '?' and rebound for Postgres.
type dialect struct {
	name       string
	schema     []string
	positional bool
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite:
		return dialect{name: driver, schema: sqliteSchema}, nil
	case DriverPostgres:
		return dialect{name: driver, schema: postgresSchema, positional: true}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// rebind rewrites '?' placeholders into $1, $2, ... when the dialect needs it.
func (d dialect) rebind(query string) string {
	if !d.positional {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            password_hash TEXT NOT NULL,
            image TEXT NOT NULL DEFAULT '',
            role TEXT NOT NULL DEFAULT 'Usuário',
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
	`CREATE TABLE IF NOT EXISTS projects (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            delivery_date TEXT NOT NULL,
            owner_id INTEGER NOT NULL,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(owner_id) REFERENCES users(id)
        );`,
	`CREATE TABLE IF NOT EXISTS project_members (
            project_id INTEGER NOT NULL,
            user_id INTEGER NOT NULL,
            PRIMARY KEY(project_id, user_id),
            FOREIGN KEY(project_id) REFERENCES projects(id),
            FOREIGN KEY(user_id) REFERENCES users(id)
        );`,
	`CREATE TABLE IF NOT EXISTS sprints (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            project_id INTEGER NOT NULL,
            name TEXT NOT NULL,
            delivery_date TEXT NOT NULL,
            created_by INTEGER NOT NULL,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(project_id) REFERENCES projects(id)
        );`,
	`CREATE TABLE IF NOT EXISTS dailies (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            project_id INTEGER NOT NULL,
            sprint_id INTEGER NOT NULL,
            name TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            delivery_date TEXT NOT NULL,
            tag TEXT NOT NULL DEFAULT '',
            created_by INTEGER NOT NULL,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(project_id) REFERENCES projects(id),
            FOREIGN KEY(sprint_id) REFERENCES sprints(id)
        );`,
	`CREATE TABLE IF NOT EXISTS finalized_sprints (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            project_id INTEGER NOT NULL,
            name TEXT NOT NULL,
            activities INTEGER NOT NULL,
            team INTEGER NOT NULL,
            communication INTEGER NOT NULL,
            deliveries INTEGER NOT NULL,
            finalized_by INTEGER NOT NULL,
            finalized_at DATETIME NOT NULL,
            FOREIGN KEY(project_id) REFERENCES projects(id)
        );`,
	`CREATE TABLE IF NOT EXISTS finalized_dailies (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            project_id INTEGER NOT NULL,
            finalized_sprint_id INTEGER,
            source_sprint_id INTEGER NOT NULL,
            name TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            delivery_date TEXT NOT NULL,
            tag TEXT NOT NULL,
            finalized_by INTEGER NOT NULL,
            finalized_at DATETIME NOT NULL,
            FOREIGN KEY(project_id) REFERENCES projects(id),
            FOREIGN KEY(finalized_sprint_id) REFERENCES finalized_sprints(id)
        );`,
	`CREATE INDEX IF NOT EXISTS idx_sprints_project ON sprints(project_id);`,
	`CREATE INDEX IF NOT EXISTS idx_dailies_project_sprint ON dailies(project_id, sprint_id);`,
	`CREATE INDEX IF NOT EXISTS idx_members_user ON project_members(user_id);`,
	`CREATE INDEX IF NOT EXISTS idx_finalized_dailies_sprint ON finalized_dailies(project_id, finalized_sprint_id);`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
            id BIGSERIAL PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            password_hash TEXT NOT NULL,
            image TEXT NOT NULL DEFAULT '',
            role TEXT NOT NULL DEFAULT 'Usuário',
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        );`,
	`CREATE TABLE IF NOT EXISTS projects (
            id BIGSERIAL PRIMARY KEY,
            name TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            delivery_date TEXT NOT NULL,
            owner_id BIGINT NOT NULL REFERENCES users(id),
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        );`,
	`CREATE TABLE IF NOT EXISTS project_members (
            project_id BIGINT NOT NULL REFERENCES projects(id),
            user_id BIGINT NOT NULL REFERENCES users(id),
            PRIMARY KEY(project_id, user_id)
        );`,
	`CREATE TABLE IF NOT EXISTS sprints (
            id BIGSERIAL PRIMARY KEY,
            project_id BIGINT NOT NULL REFERENCES projects(id),
            name TEXT NOT NULL,
            delivery_date TEXT NOT NULL,
            created_by BIGINT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        );`,
	`CREATE TABLE IF NOT EXISTS dailies (
            id BIGSERIAL PRIMARY KEY,
            project_id BIGINT NOT NULL REFERENCES projects(id),
            sprint_id BIGINT NOT NULL REFERENCES sprints(id),
            name TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            delivery_date TEXT NOT NULL,
            tag TEXT NOT NULL DEFAULT '',
            created_by BIGINT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        );`,
	`CREATE TABLE IF NOT EXISTS finalized_sprints (
            id BIGSERIAL PRIMARY KEY,
            project_id BIGINT NOT NULL REFERENCES projects(id),
            name TEXT NOT NULL,
            activities INTEGER NOT NULL,
            team INTEGER NOT NULL,
            communication INTEGER NOT NULL,
            deliveries INTEGER NOT NULL,
            finalized_by BIGINT NOT NULL,
            finalized_at TIMESTAMPTZ NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS finalized_dailies (
            id BIGSERIAL PRIMARY KEY,
            project_id BIGINT NOT NULL REFERENCES projects(id),
            finalized_sprint_id BIGINT REFERENCES finalized_sprints(id),
            source_sprint_id BIGINT NOT NULL,
            name TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            delivery_date TEXT NOT NULL,
            tag TEXT NOT NULL,
            finalized_by BIGINT NOT NULL,
            finalized_at TIMESTAMPTZ NOT NULL
        );`,
	`CREATE INDEX IF NOT EXISTS idx_sprints_project ON sprints(project_id);`,
	`CREATE INDEX IF NOT EXISTS idx_dailies_project_sprint ON dailies(project_id, sprint_id);`,
	`CREATE INDEX IF NOT EXISTS idx_members_user ON project_members(user_id);`,
	`CREATE INDEX IF NOT EXISTS idx_finalized_dailies_sprint ON finalized_dailies(project_id, finalized_sprint_id);`,
}
