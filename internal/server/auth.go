package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"sprintboard/internal/models"
	"sprintboard/internal/storage"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Image    string `json:"image"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateUserRequest struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Image    *string `json:"image"`
}

type roleRequest struct {
	UserID int64       `json:"userId"`
	Role   models.Role `json:"role"`
}

// handleRegister creates an account with the default role. Roles are only raised by an admin.
func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if !s.bindJSON(c, &req) {
		return
	}

	user, err := s.store.CreateUser(c.Request.Context(), storage.NewUser{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Image:    req.Image,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"message": "user created", "user": user})
}

// handleLogin checks credentials and stores the user id and role in the session cookie.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if !s.bindJSON(c, &req) {
		return
	}

	user, err := s.store.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}

	sess := sessions.Default(c)
	sess.Set(sessUserID, user.ID)
	if err := sess.Save(); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"message": "login successful", "user": user})
}

// handleLogout clears the session.
func (s *Server) handleLogout(c *gin.Context) {
	s.clearSession(c)
	respondSuccess(c, http.StatusOK, gin.H{"message": "logged out"})
}

// clearSession expires the session cookie. A failed save is logged; the client is
// answered either way.
func (s *Server) clearSession(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Clear()
	sess.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := sess.Save(); err != nil {
		s.logger.Warn("failed to clear session",
			slog.String("request_id", c.GetString(requestIDKey)),
			slog.String("error", err.Error()))
	}
}

// handleCurrentUser returns the logged-in account.
func (s *Server) handleCurrentUser(c *gin.Context) {
	respondSuccess(c, http.StatusOK, currentUser(c))
}

// handleFindUserByName resolves a display name to a public profile.
func (s *Server) handleFindUserByName(c *gin.Context) {
	user, err := s.store.FindUserByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"id": user.ID, "name": user.Name, "image": user.Image})
}

// handleUpdateUser edits the caller's own name, email, password and picture.
func (s *Server) handleUpdateUser(c *gin.Context) {
	var req updateUserRequest
	if !s.bindJSON(c, &req) {
		return
	}

	user, err := s.store.UpdateUser(c.Request.Context(), requester(c).ID, storage.UserUpdate{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Image:    req.Image,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"message": "user updated", "user": user})
}

// handleDeleteAccount removes the caller's account, the projects it owns, and logs it out.
func (s *Server) handleDeleteAccount(c *gin.Context) {
	if err := s.store.DeleteUser(c.Request.Context(), requester(c).ID); err != nil {
		s.respondError(c, err)
		return
	}
	s.clearSession(c)
	respondSuccess(c, http.StatusOK, gin.H{"message": "account deleted"})
}

// handleListUsers lists every account, used to pick project members.
func (s *Server) handleListUsers(c *gin.Context) {
	users, err := s.store.ListUsers(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, users)
}

// handleUpdateUserRole changes another user's role.
func (s *Server) handleUpdateUserRole(c *gin.Context) {
	var req roleRequest
	if !s.bindJSON(c, &req) {
		return
	}

	previous, err := s.store.UpdateUserRole(c.Request.Context(), req.UserID, req.Role)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"message":      "role updated",
		"previousRole": previous,
		"newRole":      req.Role,
	})
}
