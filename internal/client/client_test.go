package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"sprintboard/internal/apperr"
	"sprintboard/internal/board"
	"sprintboard/internal/models"
	"sprintboard/internal/server"
	"sprintboard/internal/storage"
)

type fixture struct {
	store *storage.Store
	url   string
	owner models.User
	proj  models.Project
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := storage.Open(storage.DriverSQLite, filepath.Join(t.TempDir(), "client.db"), nil)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	srv := server.New(store, nil, server.Options{SessionSecret: strings.Repeat("k", 32)})
	ts := httptest.NewServer(srv.Engine())
	t.Cleanup(ts.Close)

	owner, err := store.CreateUser(ctx, storage.NewUser{Name: "owner", Email: "owner@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	proj, err := store.CreateProject(ctx, storage.NewProject{Name: "Apollo", DeliveryDate: "2024-12-01", OwnerID: owner.ID})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	return &fixture{store: store, url: ts.URL, owner: owner, proj: proj}
}

func (f *fixture) client(t *testing.T) *Client {
	t.Helper()
	c, err := New(f.url + "/")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Login(context.Background(), f.owner.Email, "secret123"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	return c
}

func TestLoginRequired(t *testing.T) {
	f := newFixture(t)
	c, err := New(f.url)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = c.Projects(context.Background())
	if !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("Projects without login = %v, want unauthorized", err)
	}

	if _, err := c.Login(context.Background(), f.owner.Email, "bad-password"); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("Login with bad password = %v", err)
	}
}

func TestClientRoundTrip(t *testing.T) {
	f := newFixture(t)
	c := f.client(t)
	ctx := context.Background()

	projects, err := c.Projects(ctx)
	if err != nil || len(projects) != 1 || projects[0].ID != f.proj.ID {
		t.Fatalf("Projects = %+v, %v", projects, err)
	}

	sp, err := c.CreateSprint(ctx, f.proj.ID, "S1", "2024-06-01")
	if err != nil {
		t.Fatalf("CreateSprint: %v", err)
	}
	d, err := c.CreateDaily(ctx, models.Daily{ProjectID: f.proj.ID, SprintID: sp.ID, Name: "D1", DeliveryDate: "2024-05-20", Tag: models.TagPending})
	if err != nil {
		t.Fatalf("CreateDaily: %v", err)
	}

	if err := c.UpdateDailyTag(ctx, d.ID, models.TagCompleted); err != nil {
		t.Fatalf("UpdateDailyTag: %v", err)
	}
	if err := c.UpdateDailyTag(ctx, d.ID+100, models.TagCompleted); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("UpdateDailyTag on missing daily = %v", err)
	}
	if err := c.UpdateDailyTag(ctx, d.ID, "Blocked"); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("UpdateDailyTag with bad tag = %v", err)
	}

	dailies, err := c.ListDailies(ctx, f.proj.ID)
	if err != nil || len(dailies) != 1 || dailies[0].Tag != models.TagCompleted {
		t.Fatalf("ListDailies = %+v, %v", dailies, err)
	}

	if err := c.DeleteDaily(ctx, d.ID); err != nil {
		t.Fatalf("DeleteDaily: %v", err)
	}
	sprints, err := c.ListSprints(ctx, f.proj.ID)
	if err != nil || len(sprints) != 1 {
		t.Fatalf("ListSprints = %+v, %v", sprints, err)
	}
}

func TestBoardOverHTTP(t *testing.T) {
	f := newFixture(t)
	c := f.client(t)
	ctx := context.Background()

	b := board.New(c, f.proj.ID, nil)
	if err := b.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := b.AddSprint(ctx, "S1", "2024-06-01"); err != nil {
		t.Fatalf("AddSprint: %v", err)
	}
	d, err := b.AddDaily(ctx, models.Daily{Name: "D1", DeliveryDate: "2024-05-20"})
	if err != nil {
		t.Fatalf("AddDaily: %v", err)
	}

	if err := b.BeginDrag(d.ID); err != nil {
		t.Fatalf("BeginDrag: %v", err)
	}
	change, err := b.Drop(ctx, models.TagInProgress)
	if err != nil || change.Status != board.StatusConfirmed {
		t.Fatalf("Drop = %+v, %v", change, err)
	}
	stored, err := f.store.GetDaily(ctx, d.ID)
	if err != nil || stored.Tag != models.TagInProgress {
		t.Fatalf("stored daily = %+v, %v", stored, err)
	}

	// The daily vanishes on the server; the next drop must be reverted.
	if _, err := f.store.DeleteDaily(ctx, d.ID); err != nil {
		t.Fatalf("DeleteDaily: %v", err)
	}
	if err := b.BeginDrag(d.ID); err != nil {
		t.Fatalf("BeginDrag: %v", err)
	}
	change, err = b.Drop(ctx, models.TagCompleted)
	if !apperr.Is(err, apperr.KindNotFound) || change.Status != board.StatusReverted {
		t.Fatalf("Drop on deleted daily = %+v, %v", change, err)
	}
	if got := b.Lanes().InProgress; len(got) != 1 || got[0].ID != d.ID {
		t.Errorf("lanes after revert = %+v", b.Lanes())
	}

	scores := models.EvaluationScores{Activities: 80, Team: 70, Communication: 90, Deliveries: 60}
	if _, err := b.Finalize(ctx, "", scores); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	ended, err := c.EndedSprints(ctx, f.proj.ID)
	if err != nil || len(ended) != 1 || ended[0].EvaluationScores != scores {
		t.Fatalf("EndedSprints = %+v, %v", ended, err)
	}
	if b.Selected() != 0 || len(b.Sprints()) != 0 {
		t.Errorf("board after finalize: selected %d, sprints %d", b.Selected(), len(b.Sprints()))
	}
}

func TestDecodeError(t *testing.T) {
	tests := []struct {
		status int
		body   string
		kind   apperr.Kind
		msg    string
	}{
		{http.StatusNotFound, `{"error":"sprint 3 not found"}`, apperr.KindNotFound, "sprint 3 not found"},
		{http.StatusForbidden, `{"error":"no","details":{"isAdmin":false}}`, apperr.KindForbidden, "no"},
		{http.StatusBadRequest, `{"error":"bad"}`, apperr.KindValidation, "bad"},
		{http.StatusInternalServerError, `oops`, apperr.KindTransactionFailure, "oops"},
		{http.StatusBadGateway, ``, apperr.KindTransactionFailure, "Bad Gateway"},
	}
	for _, tt := range tests {
		err := decodeError(tt.status, []byte(tt.body))
		var ae *apperr.Error
		if !errors.As(err, &ae) {
			t.Fatalf("decodeError(%d) = %T", tt.status, err)
		}
		if ae.Kind != tt.kind || ae.Message != tt.msg {
			t.Errorf("decodeError(%d) = %s %q, want %s %q", tt.status, ae.Kind, ae.Message, tt.kind, tt.msg)
		}
	}
}
