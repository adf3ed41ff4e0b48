package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"sprintboard/internal/apperr"
	"sprintboard/internal/models"
)

// NewDaily carries the fields needed to create a daily task.
type NewDaily struct {
	ProjectID    int64
	SprintID     int64
	Name         string
	Description  string
	DeliveryDate string
	Tag          models.Tag
	CreatorID    int64
}

const dailyColumns = `id, project_id, sprint_id, name, description, delivery_date, tag, created_by, created_at`

func scanDaily(row interface{ Scan(...any) error }) (models.Daily, error) {
	var d models.Daily
	var tag string
	err := row.Scan(&d.ID, &d.ProjectID, &d.SprintID, &d.Name, &d.Description, &d.DeliveryDate, &tag, &d.CreatedBy, &d.CreatedAt)
	d.Tag = models.Tag(tag)
	return d, err
}

// CreateDaily inserts a daily into an active sprint of the same project.
// An empty tag means models.TagPending.
func (s *Store) CreateDaily(ctx context.Context, nd NewDaily) (models.Daily, error) {
	nd.Name = strings.TrimSpace(nd.Name)
	if nd.ProjectID <= 0 || nd.SprintID <= 0 {
		return models.Daily{}, apperr.Validation("projectId and sprintId are required")
	}
	if nd.Name == "" {
		return models.Daily{}, apperr.Validation("daily name is required")
	}
	delivery, err := normalizeDate("deliveryDate", nd.DeliveryDate)
	if err != nil {
		return models.Daily{}, err
	}
	if nd.Tag == "" {
		nd.Tag = models.TagPending
	}
	if !nd.Tag.Valid() {
		return models.Daily{}, apperr.Validation("invalid tag %q", nd.Tag)
	}

	var id int64
	err = s.inTx(ctx, "failed to create daily", func(tx *sql.Tx) error {
		if err := s.sprintInProject(ctx, tx, nd.SprintID, nd.ProjectID); err != nil {
			return err
		}
		newID, err := s.insertID(ctx, tx, `INSERT INTO dailies(project_id, sprint_id, name, description, delivery_date, tag, created_by)
            VALUES(?, ?, ?, ?, ?, ?, ?)`,
			nd.ProjectID, nd.SprintID, nd.Name, strings.TrimSpace(nd.Description), delivery, string(nd.Tag), nd.CreatorID)
		if err != nil {
			return fmt.Errorf("insert daily: %w", err)
		}
		id = newID
		return nil
	})
	if err != nil {
		return models.Daily{}, err
	}
	return s.GetDaily(ctx, id)
}

// GetDaily retrieves a daily by id.
func (s *Store) GetDaily(ctx context.Context, id int64) (models.Daily, error) {
	d, err := scanDaily(s.queryRow(ctx, s.db, `SELECT `+dailyColumns+` FROM dailies WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Daily{}, apperr.NotFound("daily %d not found", id)
	}
	if err != nil {
		return models.Daily{}, fmt.Errorf("get daily: %w", err)
	}
	return d, nil
}

// ListDailies returns every live daily of a project, across sprints.
func (s *Store) ListDailies(ctx context.Context, projectID int64) ([]models.Daily, error) {
	rows, err := s.query(ctx, s.db, `SELECT `+dailyColumns+` FROM dailies WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list dailies: %w", err)
	}
	defer rows.Close()
	return collectDailies(rows)
}

func (s *Store) sprintDailies(ctx context.Context, q querier, projectID, sprintID int64) ([]models.Daily, error) {
	rows, err := s.query(ctx, q, `SELECT `+dailyColumns+` FROM dailies WHERE sprint_id = ? AND project_id = ? ORDER BY id`, sprintID, projectID)
	if err != nil {
		return nil, fmt.Errorf("select sprint dailies: %w", err)
	}
	defer rows.Close()
	return collectDailies(rows)
}

func collectDailies(rows *sql.Rows) ([]models.Daily, error) {
	dailies := []models.Daily{}
	for rows.Next() {
		d, err := scanDaily(rows)
		if err != nil {
			return nil, fmt.Errorf("scan daily: %w", err)
		}
		dailies = append(dailies, d)
	}
	return dailies, rows.Err()
}

// UpdateDailyTag moves a daily to another board column. It returns the number of rows
// changed, which is zero when the daily does not exist.
func (s *Store) UpdateDailyTag(ctx context.Context, dailyID int64, tag models.Tag) (int64, error) {
	if dailyID <= 0 {
		return 0, apperr.Validation("dailyId is required")
	}
	if !tag.Valid() {
		return 0, apperr.Validation("invalid tag %q", tag)
	}
	n, err := s.exec(ctx, s.db, `UPDATE dailies SET tag = ? WHERE id = ?`, string(tag), dailyID)
	if err != nil {
		return 0, fmt.Errorf("update daily tag: %w", err)
	}
	return n, nil
}

// DeleteDaily removes a daily. It returns the number of rows deleted.
func (s *Store) DeleteDaily(ctx context.Context, dailyID int64) (int64, error) {
	n, err := s.exec(ctx, s.db, `DELETE FROM dailies WHERE id = ?`, dailyID)
	if err != nil {
		return 0, fmt.Errorf("delete daily: %w", err)
	}
	return n, nil
}

// FinalizeDaily archives a single daily outside of a sprint finalization. The snapshot keeps
// the sprint it came from but belongs to no finalized sprint.
func (s *Store) FinalizeDaily(ctx context.Context, dailyID, finalizerID int64) (models.FinalizedDaily, error) {
	now := s.now().UTC()
	var out models.FinalizedDaily

	err := s.inTx(ctx, "failed to finalize daily", func(tx *sql.Tx) error {
		d, err := scanDaily(s.queryRow(ctx, tx, `SELECT `+dailyColumns+` FROM dailies WHERE id = ?`, dailyID))
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("daily %d not found", dailyID)
		}
		if err != nil {
			return fmt.Errorf("load daily: %w", err)
		}

		tag := d.Tag
		if tag == "" {
			tag = models.TagCompleted
		}
		id, err := s.insertID(ctx, tx, `INSERT INTO finalized_dailies
            (project_id, finalized_sprint_id, source_sprint_id, name, description, delivery_date, tag, finalized_by, finalized_at)
            VALUES(?, NULL, ?, ?, ?, ?, ?, ?, ?)`,
			d.ProjectID, d.SprintID, d.Name, d.Description, d.DeliveryDate, string(tag), finalizerID, now)
		if err != nil {
			return fmt.Errorf("insert finalized daily: %w", err)
		}
		if _, err := s.exec(ctx, tx, `DELETE FROM dailies WHERE id = ?`, dailyID); err != nil {
			return fmt.Errorf("delete daily: %w", err)
		}

		out = models.FinalizedDaily{
			ID:             id,
			ProjectID:      d.ProjectID,
			SourceSprintID: d.SprintID,
			Name:           d.Name,
			Description:    d.Description,
			DeliveryDate:   d.DeliveryDate,
			Tag:            tag,
			FinalizedBy:    finalizerID,
			FinalizedAt:    now,
		}
		return nil
	})
	if err != nil {
		return models.FinalizedDaily{}, err
	}

	s.logger.Info("daily finalized", slog.Int64("daily_id", dailyID), slog.Int64("finalized_id", out.ID))
	return out, nil
}

// ListArchivedDailies returns dailies of a project that were finalized on their own.
func (s *Store) ListArchivedDailies(ctx context.Context, projectID int64) ([]models.FinalizedDaily, error) {
	return s.finalizedDailies(ctx, `project_id = ? AND finalized_sprint_id IS NULL`, projectID)
}
