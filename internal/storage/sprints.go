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

// FinalizeSprintInput describes a sprint to archive together with its evaluation.
type FinalizeSprintInput struct {
	ProjectID   int64
	SprintID    int64
	Name        string
	Scores      models.EvaluationScores
	FinalizerID int64
}

// CreateSprint inserts a sprint into an existing project. Sprint names need not be unique.
func (s *Store) CreateSprint(ctx context.Context, projectID int64, name, deliveryDate string, creatorID int64) (models.Sprint, error) {
	name = strings.TrimSpace(name)
	if projectID <= 0 {
		return models.Sprint{}, apperr.Validation("projectId is required")
	}
	if name == "" {
		return models.Sprint{}, apperr.Validation("sprint name is required")
	}
	delivery, err := normalizeDate("deliveryDate", deliveryDate)
	if err != nil {
		return models.Sprint{}, err
	}
	if err := s.projectExists(ctx, s.db, projectID); err != nil {
		return models.Sprint{}, err
	}

	id, err := s.insertID(ctx, s.db, `INSERT INTO sprints(project_id, name, delivery_date, created_by) VALUES(?, ?, ?, ?)`,
		projectID, name, delivery, creatorID)
	if err != nil {
		return models.Sprint{}, fmt.Errorf("insert sprint: %w", err)
	}
	return s.GetSprint(ctx, id)
}

// GetSprint fetches an active sprint by id.
func (s *Store) GetSprint(ctx context.Context, id int64) (models.Sprint, error) {
	var sp models.Sprint
	err := s.queryRow(ctx, s.db, `SELECT id, project_id, name, delivery_date, created_by, created_at FROM sprints WHERE id = ?`, id).
		Scan(&sp.ID, &sp.ProjectID, &sp.Name, &sp.DeliveryDate, &sp.CreatedBy, &sp.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Sprint{}, apperr.NotFound("sprint %d not found", id)
	}
	if err != nil {
		return models.Sprint{}, fmt.Errorf("get sprint: %w", err)
	}
	return sp, nil
}

// ListSprints returns the active sprints of a project in creation order.
func (s *Store) ListSprints(ctx context.Context, projectID int64) ([]models.Sprint, error) {
	rows, err := s.query(ctx, s.db, `SELECT id, project_id, name, delivery_date, created_by, created_at
        FROM sprints WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list sprints: %w", err)
	}
	defer rows.Close()

	sprints := []models.Sprint{}
	for rows.Next() {
		var sp models.Sprint
		if err := rows.Scan(&sp.ID, &sp.ProjectID, &sp.Name, &sp.DeliveryDate, &sp.CreatedBy, &sp.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan sprint: %w", err)
		}
		sprints = append(sprints, sp)
	}
	return sprints, rows.Err()
}

func (s *Store) projectExists(ctx context.Context, q querier, projectID int64) error {
	var id int64
	err := s.queryRow(ctx, q, `SELECT id FROM projects WHERE id = ?`, projectID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("project %d not found", projectID)
	}
	if err != nil {
		return fmt.Errorf("check project: %w", err)
	}
	return nil
}

func (s *Store) sprintInProject(ctx context.Context, q querier, sprintID, projectID int64) error {
	var id int64
	err := s.queryRow(ctx, q, `SELECT id FROM sprints WHERE id = ? AND project_id = ?`, sprintID, projectID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("sprint %d not found in project %d", sprintID, projectID)
	}
	if err != nil {
		return fmt.Errorf("check sprint: %w", err)
	}
	return nil
}

// FinalizeSprint archives a sprint: it records the evaluation, snapshots every daily of the
// sprint into finalized_dailies and removes the live sprint and dailies. All of it happens in
// one transaction; on any failure nothing changes.
func (s *Store) FinalizeSprint(ctx context.Context, in FinalizeSprintInput) (models.FinalizedSprint, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.ProjectID <= 0 || in.SprintID <= 0 || in.Name == "" {
		return models.FinalizedSprint{}, apperr.Validation("projectId, sprintId and name are required to finalize a sprint")
	}
	if err := in.Scores.Validate(); err != nil {
		return models.FinalizedSprint{}, err
	}

	now := s.now().UTC()
	out := models.FinalizedSprint{
		ProjectID:        in.ProjectID,
		Name:             in.Name,
		EvaluationScores: in.Scores,
		FinalizedBy:      in.FinalizerID,
		FinalizedAt:      now,
		Dailies:          []models.FinalizedDaily{},
	}

	err := s.inTx(ctx, "failed to finalize sprint", func(tx *sql.Tx) error {
		if err := s.projectExists(ctx, tx, in.ProjectID); err != nil {
			return err
		}
		if err := s.sprintInProject(ctx, tx, in.SprintID, in.ProjectID); err != nil {
			return err
		}

		id, err := s.insertID(ctx, tx, `INSERT INTO finalized_sprints
            (project_id, name, activities, team, communication, deliveries, finalized_by, finalized_at)
            VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
			in.ProjectID, in.Name, in.Scores.Activities, in.Scores.Team, in.Scores.Communication,
			in.Scores.Deliveries, in.FinalizerID, now)
		if err != nil {
			return fmt.Errorf("insert finalized sprint: %w", err)
		}
		out.ID = id

		dailies, err := s.sprintDailies(ctx, tx, in.ProjectID, in.SprintID)
		if err != nil {
			return err
		}

		if len(dailies) > 0 {
			values := make([]string, 0, len(dailies))
			args := make([]any, 0, 9*len(dailies))
			for _, d := range dailies {
				tag := d.Tag
				if tag == "" {
					tag = models.TagCompleted
				}
				values = append(values, "("+placeholders(9)+")")
				args = append(args, d.ProjectID, id, d.SprintID, d.Name, d.Description, d.DeliveryDate,
					string(tag), in.FinalizerID, now)

				fid := id
				out.Dailies = append(out.Dailies, models.FinalizedDaily{
					ProjectID:         d.ProjectID,
					FinalizedSprintID: &fid,
					SourceSprintID:    d.SprintID,
					Name:              d.Name,
					Description:       d.Description,
					DeliveryDate:      d.DeliveryDate,
					Tag:               tag,
					FinalizedBy:       in.FinalizerID,
					FinalizedAt:       now,
				})
			}
			stmt := `INSERT INTO finalized_dailies
                (project_id, finalized_sprint_id, source_sprint_id, name, description, delivery_date, tag, finalized_by, finalized_at)
                VALUES ` + strings.Join(values, ", ")
			if _, err := s.exec(ctx, tx, stmt, args...); err != nil {
				return fmt.Errorf("insert finalized dailies: %w", err)
			}

			if _, err := s.exec(ctx, tx, `DELETE FROM dailies WHERE sprint_id = ? AND project_id = ?`, in.SprintID, in.ProjectID); err != nil {
				return fmt.Errorf("delete dailies: %w", err)
			}
		}

		if _, err := s.exec(ctx, tx, `DELETE FROM sprints WHERE id = ? AND project_id = ?`, in.SprintID, in.ProjectID); err != nil {
			return fmt.Errorf("delete sprint: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.FinalizedSprint{}, err
	}

	s.logger.Info("sprint finalized",
		slog.Int64("project_id", in.ProjectID),
		slog.Int64("sprint_id", in.SprintID),
		slog.Int64("finalized_id", out.ID),
		slog.Int("dailies", len(out.Dailies)))
	return out, nil
}

// ListEndedSprints returns the finalized sprints of a project with their daily snapshots.
func (s *Store) ListEndedSprints(ctx context.Context, projectID int64) ([]models.FinalizedSprint, error) {
	rows, err := s.query(ctx, s.db, `SELECT id, project_id, name, activities, team, communication, deliveries, finalized_by, finalized_at
        FROM finalized_sprints WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list finalized sprints: %w", err)
	}
	defer rows.Close()

	sprints := []models.FinalizedSprint{}
	index := map[int64]int{}
	for rows.Next() {
		var fs models.FinalizedSprint
		sc := &fs.EvaluationScores
		if err := rows.Scan(&fs.ID, &fs.ProjectID, &fs.Name, &sc.Activities, &sc.Team, &sc.Communication,
			&sc.Deliveries, &fs.FinalizedBy, &fs.FinalizedAt); err != nil {
			return nil, fmt.Errorf("scan finalized sprint: %w", err)
		}
		fs.Dailies = []models.FinalizedDaily{}
		index[fs.ID] = len(sprints)
		sprints = append(sprints, fs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	snapshots, err := s.finalizedDailies(ctx, `project_id = ? AND finalized_sprint_id IS NOT NULL`, projectID)
	if err != nil {
		return nil, err
	}
	for _, fd := range snapshots {
		if i, ok := index[*fd.FinalizedSprintID]; ok {
			sprints[i].Dailies = append(sprints[i].Dailies, fd)
		}
	}
	return sprints, nil
}

func (s *Store) finalizedDailies(ctx context.Context, where string, args ...any) ([]models.FinalizedDaily, error) {
	rows, err := s.query(ctx, s.db, `SELECT id, project_id, finalized_sprint_id, source_sprint_id, name, description,
        delivery_date, tag, finalized_by, finalized_at FROM finalized_dailies WHERE `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list finalized dailies: %w", err)
	}
	defer rows.Close()

	out := []models.FinalizedDaily{}
	for rows.Next() {
		var (
			fd  models.FinalizedDaily
			fid sql.NullInt64
			tag string
		)
		if err := rows.Scan(&fd.ID, &fd.ProjectID, &fid, &fd.SourceSprintID, &fd.Name, &fd.Description,
			&fd.DeliveryDate, &tag, &fd.FinalizedBy, &fd.FinalizedAt); err != nil {
			return nil, fmt.Errorf("scan finalized daily: %w", err)
		}
		if fid.Valid {
			v := fid.Int64
			fd.FinalizedSprintID = &v
		}
		fd.Tag = models.Tag(tag)
		out = append(out, fd)
	}
	return out, rows.Err()
}
