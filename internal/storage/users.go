package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"sprintboard/internal/apperr"
	"sprintboard/internal/models"
)

// NewUser carries the fields needed to register an account.
type NewUser struct {
	Name     string
	Email    string
	Password string
	Image    string
	Role     models.Role
}

const userColumns = `id, name, email, password_hash, image, role, created_at`

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var u models.User
	var role string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Image, &role, &u.CreatedAt)
	u.Role = models.Role(role)
	return u, err
}

// CreateUser registers an account with a bcrypt password hash. Role defaults to models.RoleUser.
func (s *Store) CreateUser(ctx context.Context, nu NewUser) (models.User, error) {
	nu.Name = strings.TrimSpace(nu.Name)
	nu.Email = strings.ToLower(strings.TrimSpace(nu.Email))
	if nu.Name == "" || nu.Email == "" {
		return models.User{}, apperr.Validation("name and email are required")
	}
	if len(nu.Password) < 6 {
		return models.User{}, apperr.Validation("password must have at least 6 characters")
	}
	if nu.Role == "" {
		nu.Role = models.RoleUser
	}
	if !nu.Role.Valid() {
		return models.User{}, apperr.Validation("invalid role %q", nu.Role)
	}

	var exists int
	err := s.queryRow(ctx, s.db, `SELECT COUNT(*) FROM users WHERE email = ?`, nu.Email).Scan(&exists)
	if err != nil {
		return models.User{}, fmt.Errorf("check email: %w", err)
	}
	if exists > 0 {
		return models.User{}, apperr.Validation("email %s is already registered", nu.Email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.insertID(ctx, s.db, `INSERT INTO users(name, email, password_hash, image, role) VALUES(?, ?, ?, ?, ?)`,
		nu.Name, nu.Email, string(hash), nu.Image, string(nu.Role))
	if err != nil {
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return s.GetUser(ctx, id)
}

// GetUser fetches a single user by id.
func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	u, err := scanUser(s.queryRow(ctx, s.db, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.NotFound("user %d not found", id)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// Authenticate checks an email/password pair.
func (s *Store) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(s.queryRow(ctx, s.db, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.Unauthorized("invalid email or password")
	}
	if err != nil {
		return models.User{}, fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return models.User{}, apperr.Unauthorized("invalid email or password")
	}
	return u, nil
}

// ListUsers returns every account ordered by name.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.query(ctx, s.db, `SELECT `+userColumns+` FROM users ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CountUsersWithRole reports how many accounts hold role.
func (s *Store) CountUsersWithRole(ctx context.Context, role models.Role) (int, error) {
	var n int
	if err := s.queryRow(ctx, s.db, `SELECT COUNT(*) FROM users WHERE role = ?`, string(role)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// UpdateUserRole changes a user's role and returns the role it replaced.
func (s *Store) UpdateUserRole(ctx context.Context, userID int64, role models.Role) (models.Role, error) {
	if userID == 0 {
		return "", apperr.Validation("userId is required")
	}
	if !role.Valid() {
		return "", apperr.Validation("invalid role %q", role)
	}

	var previous models.Role
	err := s.inTx(ctx, "failed to update user role", func(tx *sql.Tx) error {
		var current string
		err := s.queryRow(ctx, tx, `SELECT role FROM users WHERE id = ?`, userID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("user %d not found", userID)
		}
		if err != nil {
			return fmt.Errorf("select role: %w", err)
		}
		previous = models.Role(current)

		if _, err := s.exec(ctx, tx, `UPDATE users SET role = ? WHERE id = ?`, string(role), userID); err != nil {
			return fmt.Errorf("update role: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("user role changed", slog.Int64("user_id", userID),
		slog.String("from", string(previous)), slog.String("to", string(role)))
	return previous, nil
}

// UserUpdate carries the editable profile fields. An empty Password keeps the current
// one; a nil Image keeps the current picture and an empty one clears it.
type UserUpdate struct {
	Name     string
	Email    string
	Password string
	Image    *string
}

// UpdateUser edits the caller's own profile.
func (s *Store) UpdateUser(ctx context.Context, userID int64, up UserUpdate) (models.User, error) {
	up.Name = strings.TrimSpace(up.Name)
	up.Email = strings.ToLower(strings.TrimSpace(up.Email))
	if up.Name == "" || up.Email == "" {
		return models.User{}, apperr.Validation("name and email are required")
	}
	if up.Password != "" && len(up.Password) < 6 {
		return models.User{}, apperr.Validation("password must have at least 6 characters")
	}

	sets := []string{"name = ?", "email = ?"}
	args := []any{up.Name, up.Email}
	if up.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(up.Password), bcrypt.DefaultCost)
		if err != nil {
			return models.User{}, fmt.Errorf("hash password: %w", err)
		}
		sets = append(sets, "password_hash = ?")
		args = append(args, string(hash))
	}
	if up.Image != nil {
		sets = append(sets, "image = ?")
		args = append(args, *up.Image)
	}

	err := s.inTx(ctx, "failed to update user", func(tx *sql.Tx) error {
		var taken int
		err := s.queryRow(ctx, tx, `SELECT COUNT(*) FROM users WHERE email = ? AND id <> ?`, up.Email, userID).Scan(&taken)
		if err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if taken > 0 {
			return apperr.Validation("email %s is already registered", up.Email)
		}

		n, err := s.exec(ctx, tx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, append(args, userID)...)
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		if n == 0 {
			return apperr.NotFound("user %d not found", userID)
		}
		return nil
	})
	if err != nil {
		return models.User{}, err
	}

	s.logger.Info("user updated", slog.Int64("user_id", userID), slog.Bool("password_changed", up.Password != ""))
	return s.GetUser(ctx, userID)
}

// DeleteUser removes an account in one transaction: the projects it owns with
// everything under them, its memberships, then the user row. Sprints and dailies it
// created in other people's projects stay with those projects.
func (s *Store) DeleteUser(ctx context.Context, userID int64) error {
	var owned []int64
	err := s.inTx(ctx, "failed to delete user", func(tx *sql.Tx) error {
		rows, err := s.query(ctx, tx, `SELECT id FROM projects WHERE owner_id = ? ORDER BY id`, userID)
		if err != nil {
			return fmt.Errorf("select owned projects: %w", err)
		}
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("scan project id: %w", err)
			}
			owned = append(owned, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("select owned projects: %w", err)
		}

		for _, projectID := range owned {
			if err := s.deleteProjectRows(ctx, tx, projectID); err != nil {
				return fmt.Errorf("project %d: %w", projectID, err)
			}
		}
		if _, err := s.exec(ctx, tx, `DELETE FROM project_members WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("delete memberships: %w", err)
		}

		n, err := s.exec(ctx, tx, `DELETE FROM users WHERE id = ?`, userID)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if n == 0 {
			return apperr.NotFound("user %d not found", userID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("user deleted", slog.Int64("user_id", userID), slog.Int("owned_projects", len(owned)))
	return nil
}

// FindUserByName looks a user up by exact name, falling back to a case-insensitive match.
func (s *Store) FindUserByName(ctx context.Context, name string) (models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.User{}, apperr.Validation("name is required")
	}

	u, err := scanUser(s.queryRow(ctx, s.db, `SELECT `+userColumns+` FROM users WHERE name = ? ORDER BY id LIMIT 1`, name))
	if errors.Is(err, sql.ErrNoRows) {
		u, err = scanUser(s.queryRow(ctx, s.db,
			`SELECT `+userColumns+` FROM users WHERE LOWER(name) = LOWER(?) ORDER BY id LIMIT 1`, name))
	}
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.NotFound("user %q not found", name)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("find user by name: %w", err)
	}
	return u, nil
}
