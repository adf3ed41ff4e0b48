// Package board holds the client-side state of a project's sprint board: the sprints, the
// dailies, the selected sprint, the three tag lanes and the drag in progress.
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"sprintboard/internal/models"
)

var (
	ErrDragInProgress = errors.New("board: a daily is already being dragged")
	ErrNoDrag         = errors.New("board: no daily is being dragged")
	ErrUnknownDaily   = errors.New("board: daily is not on the current board")
	ErrUnknownSprint  = errors.New("board: sprint is not part of the project")
	ErrNoSprint       = errors.New("board: no sprint selected")
	ErrInvalidTag     = errors.New("board: invalid tag")
)

// API is the subset of the server the board talks to.
type API interface {
	ListSprints(ctx context.Context, projectID int64) ([]models.Sprint, error)
	ListDailies(ctx context.Context, projectID int64) ([]models.Daily, error)
	CreateSprint(ctx context.Context, projectID int64, name, deliveryDate string) (models.Sprint, error)
	CreateDaily(ctx context.Context, d models.Daily) (models.Daily, error)
	UpdateDailyTag(ctx context.Context, dailyID int64, tag models.Tag) error
	DeleteDaily(ctx context.Context, dailyID int64) error
	FinalizeSprint(ctx context.Context, projectID, sprintID int64, name string, scores models.EvaluationScores) (int64, error)
}

// Lanes partitions the selected sprint's dailies by tag.
type Lanes struct {
	Pending    []models.Daily `json:"pending"`
	InProgress []models.Daily `json:"inProgress"`
	Completed  []models.Daily `json:"completed"`
}

// For returns the lane holding tag.
func (l Lanes) For(tag models.Tag) []models.Daily {
	switch tag {
	case models.TagPending:
		return l.Pending
	case models.TagInProgress:
		return l.InProgress
	case models.TagCompleted:
		return l.Completed
	}
	return nil
}

// Len counts the dailies across all lanes.
func (l Lanes) Len() int {
	return len(l.Pending) + len(l.InProgress) + len(l.Completed)
}

// Board is safe for concurrent use.
type Board struct {
	api       API
	projectID int64
	logger    *slog.Logger

	mu       sync.Mutex
	sprints  []models.Sprint
	dailies  []models.Daily
	selected int64
	lanes    Lanes
	dragging int64
	inflight map[int64]*TagChange
	seq      int64
}

// New creates an empty board for projectID. Call Load to populate it.
func New(api API, projectID int64, logger *slog.Logger) *Board {
	if logger == nil {
		logger = slog.Default()
	}
	return &Board{
		api:       api,
		projectID: projectID,
		logger:    logger.With("project_id", projectID),
		inflight:  map[int64]*TagChange{},
	}
}

// ProjectID returns the project the board shows.
func (b *Board) ProjectID() int64 {
	return b.projectID
}

// Load fetches sprints and dailies. The current selection is kept when the sprint still
// exists, otherwise the first sprint is selected.
func (b *Board) Load(ctx context.Context) error {
	sprints, err := b.api.ListSprints(ctx, b.projectID)
	if err != nil {
		return fmt.Errorf("load sprints: %w", err)
	}
	dailies, err := b.api.ListDailies(ctx, b.projectID)
	if err != nil {
		return fmt.Errorf("load dailies: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.sprints = append([]models.Sprint(nil), sprints...)
	b.dailies = append([]models.Daily(nil), dailies...)
	if b.sprintIndex(b.selected) < 0 {
		b.selected = 0
		if len(b.sprints) > 0 {
			b.selected = b.sprints[0].ID
		}
	}
	b.relane()
	b.logger.Debug("board loaded", "sprints", len(sprints), "dailies", len(dailies), "selected", b.selected)
	return nil
}

// Select switches the board to sprintID and recomputes the lanes. Zero clears the selection.
func (b *Board) Select(sprintID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sprintID != 0 && b.sprintIndex(sprintID) < 0 {
		return ErrUnknownSprint
	}
	b.selected = sprintID
	b.dragging = 0
	b.relane()
	return nil
}

// BeginDrag marks dailyID as the daily being dragged.
func (b *Board) BeginDrag(dailyID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dragging != 0 {
		return ErrDragInProgress
	}
	i := b.dailyIndex(dailyID)
	if i < 0 || b.dailies[i].SprintID != b.selected {
		return ErrUnknownDaily
	}
	b.dragging = dailyID
	return nil
}

// CancelDrag abandons the drag without changing anything.
func (b *Board) CancelDrag() {
	b.mu.Lock()
	b.dragging = 0
	b.mu.Unlock()
}

// Dragging returns the id of the daily being dragged, or zero.
func (b *Board) Dragging() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dragging
}

// Drop moves the dragged daily into the lane for tag. The move is applied locally before the
// server is asked, so concurrent readers see it at once. A failed server call reverts the move
// unless the daily has been moved again in the meantime. The returned change carries the
// outcome; its Err is also returned.
func (b *Board) Drop(ctx context.Context, tag models.Tag) (TagChange, error) {
	if !tag.Valid() {
		b.CancelDrag()
		return TagChange{}, fmt.Errorf("%w: %q", ErrInvalidTag, tag)
	}

	b.mu.Lock()
	dailyID := b.dragging
	b.dragging = 0
	if dailyID == 0 {
		b.mu.Unlock()
		return TagChange{}, ErrNoDrag
	}
	i := b.dailyIndex(dailyID)
	if i < 0 {
		b.mu.Unlock()
		return TagChange{}, ErrUnknownDaily
	}

	b.seq++
	change := &TagChange{Seq: b.seq, DailyID: dailyID, From: b.dailies[i].Tag, To: tag, Status: StatusApplied}
	if change.From == tag {
		change.Status = StatusConfirmed
		b.mu.Unlock()
		return *change, nil
	}
	b.dailies[i].Tag = tag
	b.inflight[change.Seq] = change
	b.relane()
	b.mu.Unlock()

	err := b.api.UpdateDailyTag(ctx, dailyID, tag)

	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.inflight, change.Seq)

	if err == nil {
		change.Status = StatusConfirmed
		return *change, nil
	}

	change.Status = StatusReverted
	change.Err = err
	if j := b.dailyIndex(dailyID); j >= 0 && b.dailies[j].Tag == tag {
		b.dailies[j].Tag = change.From
		change.Restored = true
		b.relane()
	}
	b.logger.Warn("tag change reverted",
		"daily_id", dailyID, "from", change.From, "to", tag, "restored", change.Restored, "error", err)
	return *change, err
}

// InFlight lists the tag changes whose server call has not returned yet.
func (b *Board) InFlight() []TagChange {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]TagChange, 0, len(b.inflight))
	for _, c := range b.inflight {
		out = append(out, *c)
	}
	sortChanges(out)
	return out
}

// Finalize closes the selected sprint with scores. An empty name keeps the sprint's name. On
// success the sprint and its dailies leave the board and the next sprint is selected.
func (b *Board) Finalize(ctx context.Context, name string, scores models.EvaluationScores) (int64, error) {
	if err := scores.Validate(); err != nil {
		return 0, err
	}

	b.mu.Lock()
	sprintID := b.selected
	idx := b.sprintIndex(sprintID)
	if sprintID == 0 || idx < 0 {
		b.mu.Unlock()
		return 0, ErrNoSprint
	}
	if name == "" {
		name = b.sprints[idx].Name
	}
	b.mu.Unlock()

	finalizedID, err := b.api.FinalizeSprint(ctx, b.projectID, sprintID, name, scores)
	if err != nil {
		return 0, fmt.Errorf("finalize sprint %d: %w", sprintID, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if idx = b.sprintIndex(sprintID); idx >= 0 {
		b.sprints = append(b.sprints[:idx:idx], b.sprints[idx+1:]...)
	}
	kept := b.dailies[:0:0]
	for _, d := range b.dailies {
		if d.SprintID != sprintID {
			kept = append(kept, d)
		}
	}
	b.dailies = kept

	if b.selected == sprintID {
		b.selected = 0
		if len(b.sprints) > 0 {
			next := idx
			if next < 0 || next >= len(b.sprints) {
				next = len(b.sprints) - 1
			}
			b.selected = b.sprints[next].ID
		}
		b.dragging = 0
	}
	b.relane()
	b.logger.Info("sprint finalized", "sprint_id", sprintID, "finalized_id", finalizedID, "selected", b.selected)
	return finalizedID, nil
}

// AddSprint creates a sprint and selects it when nothing was selected.
func (b *Board) AddSprint(ctx context.Context, name, deliveryDate string) (models.Sprint, error) {
	sp, err := b.api.CreateSprint(ctx, b.projectID, name, deliveryDate)
	if err != nil {
		return models.Sprint{}, fmt.Errorf("create sprint: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.sprints = append(b.sprints, sp)
	if b.selected == 0 {
		b.selected = sp.ID
		b.relane()
	}
	return sp, nil
}

// AddDaily creates a daily. A zero SprintID targets the selected sprint and an empty tag
// starts the daily as pending.
func (b *Board) AddDaily(ctx context.Context, d models.Daily) (models.Daily, error) {
	b.mu.Lock()
	if d.SprintID == 0 {
		d.SprintID = b.selected
	}
	known := b.sprintIndex(d.SprintID) >= 0
	b.mu.Unlock()

	if d.SprintID == 0 {
		return models.Daily{}, ErrNoSprint
	}
	if !known {
		return models.Daily{}, ErrUnknownSprint
	}
	if d.Tag == "" {
		d.Tag = models.TagPending
	}
	if !d.Tag.Valid() {
		return models.Daily{}, fmt.Errorf("%w: %q", ErrInvalidTag, d.Tag)
	}
	d.ProjectID = b.projectID

	created, err := b.api.CreateDaily(ctx, d)
	if err != nil {
		return models.Daily{}, fmt.Errorf("create daily: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.dailies = append(b.dailies, created)
	b.relane()
	return created, nil
}

// RemoveDaily deletes a daily on the server and drops it from the board.
func (b *Board) RemoveDaily(ctx context.Context, dailyID int64) error {
	if err := b.api.DeleteDaily(ctx, dailyID); err != nil {
		return fmt.Errorf("delete daily %d: %w", dailyID, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.dailyIndex(dailyID); i >= 0 {
		b.dailies = append(b.dailies[:i:i], b.dailies[i+1:]...)
	}
	if b.dragging == dailyID {
		b.dragging = 0
	}
	b.relane()
	return nil
}

// Lanes returns a copy of the current lanes.
func (b *Board) Lanes() Lanes {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Lanes{
		Pending:    append([]models.Daily{}, b.lanes.Pending...),
		InProgress: append([]models.Daily{}, b.lanes.InProgress...),
		Completed:  append([]models.Daily{}, b.lanes.Completed...),
	}
}

// Sprints returns a copy of the project's active sprints.
func (b *Board) Sprints() []models.Sprint {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Sprint{}, b.sprints...)
}

// Dailies returns a copy of every daily of the project, across sprints.
func (b *Board) Dailies() []models.Daily {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Daily{}, b.dailies...)
}

// Selected returns the selected sprint id, or zero.
func (b *Board) Selected() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selected
}

// relane rebuilds the lanes from dailies. Callers hold mu.
func (b *Board) relane() {
	var l Lanes
	for _, d := range b.dailies {
		if d.SprintID != b.selected || b.selected == 0 {
			continue
		}
		switch d.Tag {
		case models.TagPending:
			l.Pending = append(l.Pending, d)
		case models.TagInProgress:
			l.InProgress = append(l.InProgress, d)
		case models.TagCompleted:
			l.Completed = append(l.Completed, d)
		default:
			b.logger.Debug("daily with unknown tag left off the board", "daily_id", d.ID, "tag", d.Tag)
		}
	}
	b.lanes = l
}

func (b *Board) sprintIndex(id int64) int {
	for i, sp := range b.sprints {
		if sp.ID == id {
			return i
		}
	}
	return -1
}

func (b *Board) dailyIndex(id int64) int {
	for i, d := range b.dailies {
		if d.ID == id {
			return i
		}
	}
	return -1
}
