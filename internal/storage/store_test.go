package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"sprintboard/internal/apperr"
	"sprintboard/internal/models"
)

var fixedNow = time.Date(2024, 5, 10, 14, 30, 0, 0, time.UTC)

// newTestStore opens a sqlite store in a temp directory.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	store.now = func() time.Time { return fixedNow }
	t.Cleanup(func() { store.Close() })
	return store
}

// mustUser registers an account with the given role.
func mustUser(t *testing.T, s *Store, name string, role models.Role) models.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), NewUser{
		Name:     name,
		Email:    name + "@example.com",
		Password: "secret123",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("Failed to create user %s: %v", name, err)
	}
	return u
}

func mustProject(t *testing.T, s *Store, owner int64, members ...int64) models.Project {
	t.Helper()
	p, err := s.CreateProject(context.Background(), NewProject{
		Name:         "Apollo",
		Description:  "moon",
		DeliveryDate: "2024-12-01",
		MemberIDs:    members,
		OwnerID:      owner,
	})
	if err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}
	return p
}

func mustSprint(t *testing.T, s *Store, projectID, creator int64, name string) models.Sprint {
	t.Helper()
	sp, err := s.CreateSprint(context.Background(), projectID, name, "2024-06-01", creator)
	if err != nil {
		t.Fatalf("Failed to create sprint: %v", err)
	}
	return sp
}

func mustDaily(t *testing.T, s *Store, projectID, sprintID, creator int64, name string, tag models.Tag) models.Daily {
	t.Helper()
	d, err := s.CreateDaily(context.Background(), NewDaily{
		ProjectID:    projectID,
		SprintID:     sprintID,
		Name:         name,
		Description:  name + " description",
		DeliveryDate: "2024-05-20",
		Tag:          tag,
		CreatorID:    creator,
	})
	if err != nil {
		t.Fatalf("Failed to create daily: %v", err)
	}
	return d
}

func countRows(t *testing.T, s *Store, table string, projectID int64) int {
	t.Helper()
	col := "project_id"
	if table == "projects" {
		col = "id"
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM `+table+` WHERE `+col+` = ?`, projectID).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func wantKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := apperr.KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %q (%v)", kind, got, err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("mysql", "whatever", nil); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
	if _, err := Open(DriverSQLite, "", nil); err == nil {
		t.Fatal("expected error for empty dsn")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "again.db")
	for i := 0; i < 2; i++ {
		s, err := Open(DriverSQLite, path, nil)
		if err != nil {
			t.Fatalf("open #%d: %v", i+1, err)
		}
		if err := s.Ping(context.Background()); err != nil {
			t.Fatalf("ping #%d: %v", i+1, err)
		}
		s.Close()
	}
}

func TestOpenFileURIEnforcesForeignKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uri.db")
	s, err := Open(DriverSQLite, "file:"+path+"?cache=shared", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	var on int
	if err := s.db.QueryRow(`PRAGMA foreign_keys`).Scan(&on); err != nil {
		t.Fatalf("PRAGMA foreign_keys: %v", err)
	}
	if on != 1 {
		t.Fatalf("foreign_keys = %d, want 1", on)
	}

	// A daily pointing at a missing project must be rejected.
	_, err = s.db.Exec(`INSERT INTO dailies (project_id, sprint_id, name, description, delivery_date, tag, created_by, created_at)
		VALUES (999, 999, 'x', '', '2024-01-01', 'Pendente', 1, '2024-01-01')`)
	if err == nil {
		t.Fatal("expected foreign key violation")
	}
}

func TestSQLiteSource(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"data/app.db", "file:data/app.db?_busy_timeout=5000&_foreign_keys=ON"},
		{"file:app.db", "file:app.db?_foreign_keys=ON&_busy_timeout=5000"},
		{"file:app.db?cache=shared", "file:app.db?cache=shared&_foreign_keys=ON&_busy_timeout=5000"},
		{"file:app.db?_fk=1&_timeout=100", "file:app.db?_fk=1&_timeout=100"},
		{"file:app.db?_foreign_keys=OFF", "file:app.db?_foreign_keys=OFF&_busy_timeout=5000"},
	}
	for _, tt := range tests {
		if got := sqliteSource(tt.in); got != tt.want {
			t.Errorf("sqliteSource(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLinkedSQLiteIsRecentEnough(t *testing.T) {
	s := newTestStore(t)

	var version string
	if err := s.db.QueryRow(`SELECT sqlite_version()`).Scan(&version); err != nil {
		t.Fatalf("sqlite_version: %v", err)
	}
	if !versionAtLeast(version, minSQLiteVersion) {
		t.Fatalf("linked sqlite %s is older than %s", version, minSQLiteVersion)
	}
	if err := s.checkSQLiteVersion(); err != nil {
		t.Fatalf("checkSQLiteVersion: %v", err)
	}
}

func TestVersionAtLeast(t *testing.T) {
	tests := []struct {
		version string
		want    bool
	}{
		{"3.35.0", true},
		{"3.45.1", true},
		{"3.35", true},
		{"4.0.0", true},
		{"3.34.1", false},
		{"3.14.0", false},
		{"3.9.2", false},
		{"garbage", false},
	}
	for _, tt := range tests {
		if got := versionAtLeast(tt.version, "3.35.0"); got != tt.want {
			t.Errorf("versionAtLeast(%q) = %v, want %v", tt.version, got, tt.want)
		}
	}
}

func TestInsertIDReturnsSequentialIDs(t *testing.T) {
	s := newTestStore(t)
	a := mustUser(t, s, "ana", models.RoleUser)
	b := mustUser(t, s, "bia", models.RoleUser)
	if a.ID <= 0 || b.ID != a.ID+1 {
		t.Fatalf("ids = %d, %d", a.ID, b.ID)
	}
	p := mustProject(t, s, a.ID, b.ID)
	sp := mustSprint(t, s, p.ID, a.ID, "S1")
	if p.ID <= 0 || sp.ID <= 0 {
		t.Fatalf("project %d sprint %d", p.ID, sp.ID)
	}
	got, err := s.GetSprint(context.Background(), sp.ID)
	if err != nil || got.ProjectID != p.ID {
		t.Fatalf("GetSprint = %+v, %v", got, err)
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "2024-06-01", want: "2024-06-01"},
		{in: " 2024-06-01 ", want: "2024-06-01"},
		{in: "2024-06-01T10:00:00Z", want: "2024-06-01"},
		{in: "", wantErr: true},
		{in: "01/06/2024", wantErr: true},
	}
	for _, tt := range tests {
		got, err := normalizeDate("deliveryDate", tt.in)
		if tt.wantErr {
			wantKind(t, err, apperr.KindValidation)
			continue
		}
		if err != nil {
			t.Fatalf("normalizeDate(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("normalizeDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPlaceholders(t *testing.T) {
	if got := placeholders(3); got != "?, ?, ?" {
		t.Errorf("placeholders(3) = %q", got)
	}
	if got := placeholders(0); got != "" {
		t.Errorf("placeholders(0) = %q", got)
	}
}
