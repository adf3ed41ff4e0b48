package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"sprintboard/internal/apperr"
	"sprintboard/internal/models"
)

const (
	requestIDKey   = "request_id"
	sessionUserKey = "session_user"
	sessUserID     = "user_id"
)

var adminOnly = []models.Role{models.RoleAdmin}

// requestID tags every request with an id, reusing the caller's X-Request-ID when present.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// requireAuth rejects requests without a logged-in session and loads the session's user
// from the store, so role changes and deletions take effect on the next request.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		uid, ok := sess.Get(sessUserID).(int64)
		if !ok || uid <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		user, err := s.store.GetUser(c.Request.Context(), uid)
		if apperr.Is(err, apperr.KindNotFound) {
			sess.Clear()
			sess.Options(sessions.Options{Path: "/", MaxAge: -1})
			if err := sess.Save(); err != nil {
				s.logger.Warn("failed to clear stale session", slog.Int64("user_id", uid), slog.String("error", err.Error()))
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session user no longer exists"})
			return
		}
		if err != nil {
			s.respondError(c, err)
			c.Abort()
			return
		}

		c.Set(sessionUserKey, user)
		c.Next()
	}
}

// requireRole lets through only users currently holding one of roles.
func requireRole(roles ...models.Role) gin.HandlerFunc {
	roleSet := map[models.Role]struct{}{}
	for _, r := range roles {
		roleSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := roleSet[requester(c).Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}
		c.Next()
	}
}

// currentUser returns the user loaded by requireAuth.
func currentUser(c *gin.Context) models.User {
	u, _ := c.Get(sessionUserKey)
	user, _ := u.(models.User)
	return user
}

// requester builds the explicit caller identity handed to store operations.
func requester(c *gin.Context) models.Requester {
	u := currentUser(c)
	return models.Requester{ID: u.ID, Role: u.Role}
}
