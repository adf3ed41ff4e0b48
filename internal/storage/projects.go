package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"sprintboard/internal/apperr"
	"sprintboard/internal/models"
)

// NewProject carries the fields needed to create a project.
type NewProject struct {
	Name         string
	Description  string
	DeliveryDate string
	MemberIDs    []int64
	OwnerID      int64
}

// DeleteDenial describes why a requester may not delete a project.
type DeleteDenial struct {
	IsProjectOwner   bool   `json:"isProjectOwner"`
	IsAdmin          bool   `json:"isAdmin"`
	IsManagerOrAdmin bool   `json:"isManagerOrAdmin"`
	ProjectOwnerID   int64  `json:"projectOwnerId"`
	CurrentUserID    int64  `json:"currentUserId"`
	ProjectOwnerName string `json:"projectOwnerName"`
	CurrentUserName  string `json:"currentUserName"`
}

// memberUnion returns ids plus owner with duplicates and zero ids removed, sorted.
func memberUnion(ids []int64, owner int64) []int64 {
	seen := map[int64]struct{}{owner: {}}
	members := []int64{owner}
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		members = append(members, id)
	}
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
	return members
}

// CreateProject inserts a project and its memberships in one transaction.
// The owner is always added as a member.
func (s *Store) CreateProject(ctx context.Context, np NewProject) (models.Project, error) {
	name := strings.TrimSpace(np.Name)
	if name == "" {
		return models.Project{}, apperr.Validation("project name is required")
	}
	delivery, err := normalizeDate("deliveryDate", np.DeliveryDate)
	if err != nil {
		return models.Project{}, err
	}
	if np.OwnerID == 0 {
		return models.Project{}, apperr.Validation("project owner is required")
	}

	members := memberUnion(np.MemberIDs, np.OwnerID)

	var projectID int64
	err = s.inTx(ctx, "failed to create project", func(tx *sql.Tx) error {
		id, err := s.insertID(ctx, tx, `INSERT INTO projects(name, description, delivery_date, owner_id) VALUES(?, ?, ?, ?)`,
			name, strings.TrimSpace(np.Description), delivery, np.OwnerID)
		if err != nil {
			return fmt.Errorf("insert project: %w", err)
		}
		projectID = id

		values := make([]string, 0, len(members))
		args := make([]any, 0, 2*len(members))
		for _, m := range members {
			values = append(values, "(?, ?)")
			args = append(args, id, m)
		}
		stmt := `INSERT INTO project_members(project_id, user_id) VALUES ` + strings.Join(values, ", ")
		if _, err := s.exec(ctx, tx, stmt, args...); err != nil {
			return fmt.Errorf("insert project members: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Project{}, err
	}

	s.logger.Info("project created", slog.Int64("project_id", projectID), slog.Int("members", len(members)))
	return s.GetProject(ctx, projectID)
}

// GetProject fetches a project with its member ids.
func (s *Store) GetProject(ctx context.Context, id int64) (models.Project, error) {
	var p models.Project
	err := s.queryRow(ctx, s.db, `SELECT id, name, description, delivery_date, owner_id, created_at FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.DeliveryDate, &p.OwnerID, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, apperr.NotFound("project %d not found", id)
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("get project: %w", err)
	}

	members, err := s.memberIDs(ctx, []int64{id})
	if err != nil {
		return models.Project{}, err
	}
	p.MemberIDs = members[id]
	if p.MemberIDs == nil {
		p.MemberIDs = []int64{}
	}
	return p, nil
}

// ProjectDetail returns a project with its member names joined by ", ".
// Any authenticated caller may read it; visibility is only applied to ListProjects.
func (s *Store) ProjectDetail(ctx context.Context, id int64) (models.ProjectDetail, error) {
	var d models.ProjectDetail
	err := s.queryRow(ctx, s.db, `SELECT id, name, description, delivery_date FROM projects WHERE id = ?`, id).
		Scan(&d.ID, &d.Name, &d.Description, &d.EndDate)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ProjectDetail{}, apperr.NotFound("project %d not found", id)
	}
	if err != nil {
		return models.ProjectDetail{}, fmt.Errorf("get project: %w", err)
	}

	rows, err := s.query(ctx, s.db, `SELECT u.name FROM project_members pm
        JOIN users u ON u.id = pm.user_id
        WHERE pm.project_id = ? ORDER BY u.id`, id)
	if err != nil {
		return models.ProjectDetail{}, fmt.Errorf("list member names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return models.ProjectDetail{}, fmt.Errorf("scan member name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return models.ProjectDetail{}, err
	}
	d.ProjectMembers = strings.Join(names, ", ")
	return d, nil
}

// ListProjects returns the projects visible to the requester: every project for admins,
// otherwise the ones the requester owns or belongs to.
func (s *Store) ListProjects(ctx context.Context, req models.Requester) ([]models.Project, error) {
	query := `SELECT id, name, description, delivery_date, owner_id, created_at FROM projects ORDER BY id`
	var args []any
	if req.Role != models.RoleAdmin {
		query = `SELECT DISTINCT p.id, p.name, p.description, p.delivery_date, p.owner_id, p.created_at
            FROM projects p
            LEFT JOIN project_members pm ON p.id = pm.project_id
            WHERE p.owner_id = ? OR pm.user_id = ?
            ORDER BY p.id`
		args = []any{req.ID, req.ID}
	}

	rows, err := s.query(ctx, s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	ids := []int64{}
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.DeliveryDate, &p.OwnerID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	members, err := s.memberIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		projects[i].MemberIDs = members[projects[i].ID]
		if projects[i].MemberIDs == nil {
			projects[i].MemberIDs = []int64{}
		}
	}
	return projects, nil
}

func (s *Store) memberIDs(ctx context.Context, projectIDs []int64) (map[int64][]int64, error) {
	out := make(map[int64][]int64, len(projectIDs))
	if len(projectIDs) == 0 {
		return out, nil
	}
	args := make([]any, len(projectIDs))
	for i, id := range projectIDs {
		args[i] = id
	}

	rows, err := s.query(ctx, s.db, `SELECT project_id, user_id FROM project_members
        WHERE project_id IN (`+placeholders(len(args))+`) ORDER BY project_id, user_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pid, uid int64
		if err := rows.Scan(&pid, &uid); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out[pid] = append(out[pid], uid)
	}
	return out, rows.Err()
}

// DeleteProject removes a project and everything that hangs off it in one transaction.
// Only the owner or an Admin/Gerente may do so; the requester's role is read from the
// database, not trusted from the caller.
func (s *Store) DeleteProject(ctx context.Context, projectID int64, req models.Requester) error {
	if projectID <= 0 {
		return apperr.Validation("invalid project id")
	}

	err := s.inTx(ctx, "failed to delete project", func(tx *sql.Tx) error {
		var (
			ownerID             int64
			ownerName, userName string
			userRole            string
		)
		err := s.queryRow(ctx, tx, `SELECT p.owner_id, o.name, cu.name, cu.role
            FROM projects p
            JOIN users o ON p.owner_id = o.id
            JOIN users cu ON cu.id = ?
            WHERE p.id = ?`, req.ID, projectID).Scan(&ownerID, &ownerName, &userName, &userRole)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("project %d not found", projectID)
		}
		if err != nil {
			return fmt.Errorf("load project: %w", err)
		}

		role := models.Role(userRole)
		isOwner := ownerID == req.ID
		if !isOwner && !role.Elevated() {
			return apperr.Forbidden("you are not allowed to delete this project", DeleteDenial{
				IsProjectOwner:   isOwner,
				IsAdmin:          role == models.RoleAdmin,
				IsManagerOrAdmin: role.Elevated(),
				ProjectOwnerID:   ownerID,
				CurrentUserID:    req.ID,
				ProjectOwnerName: ownerName,
				CurrentUserName:  userName,
			})
		}

		return s.deleteProjectRows(ctx, tx, projectID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("project deleted", slog.Int64("project_id", projectID), slog.Int64("by", req.ID))
	return nil
}

// deleteProjectRows removes a project and its dependents, children first.
func (s *Store) deleteProjectRows(ctx context.Context, tx *sql.Tx, projectID int64) error {
	steps := []struct {
		what  string
		query string
	}{
		{"dailies", `DELETE FROM dailies WHERE project_id = ?`},
		{"sprints", `DELETE FROM sprints WHERE project_id = ?`},
		{"members", `DELETE FROM project_members WHERE project_id = ?`},
		{"finalized dailies", `DELETE FROM finalized_dailies WHERE project_id = ?`},
		{"finalized sprints", `DELETE FROM finalized_sprints WHERE project_id = ?`},
		{"project", `DELETE FROM projects WHERE id = ?`},
	}
	for _, step := range steps {
		if _, err := s.exec(ctx, tx, step.query, projectID); err != nil {
			return fmt.Errorf("delete %s: %w", step.what, err)
		}
	}
	return nil
}
