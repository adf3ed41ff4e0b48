package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"sprintboard/internal/apperr"
	"sprintboard/internal/storage"
)

const sessionName = "sprintboard_session"

// Options configures the HTTP server.
type Options struct {
	StaticDir     string
	SessionSecret string
	CookieSecure  bool
	// AccessLog receives one line per /api request. Defaults to gin.DefaultWriter.
	AccessLog io.Writer
}

// Server provides HTTP handlers for the sprint board backend.
type Server struct {
	engine    *gin.Engine
	store     *storage.Store
	logger    *slog.Logger
	staticDir string
	indexPath string
}

// New constructs the HTTP server with routes and middleware configured.
func New(store *storage.Store, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	accessLog := opts.AccessLog
	if accessLog == nil {
		accessLog = gin.DefaultWriter
	}
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Output:    accessLog,
		SkipPaths: []string{"/api/healthz"},
		Skip:      skipAccessLog,
	}))

	sessionStore := cookie.NewStore([]byte(opts.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions(sessionName, sessionStore))

	srv := &Server{
		engine:    router,
		store:     store,
		logger:    logger,
		staticDir: opts.StaticDir,
	}

	srv.registerRoutes()
	return srv
}

// skipAccessLog keeps static assets and the SPA fallback out of the access log.
func skipAccessLog(c *gin.Context) bool {
	return !strings.HasPrefix(c.Request.URL.Path, "/api/")
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)

		api.POST("/cadastrar", s.handleRegister)
		api.POST("/login", s.handleLogin)
		api.GET("/logout", s.handleLogout)

		auth := api.Group("")
		auth.Use(s.requireAuth())
		{
			auth.GET("/usuarioLogado", s.handleCurrentUser)
			auth.GET("/usuarios", s.handleListUsers)
			auth.GET("/users/name/:name", s.handleFindUserByName)
			auth.PUT("/updateUser", s.handleUpdateUser)
			auth.DELETE("/delete-account", s.handleDeleteAccount)
			auth.PUT("/update-user-role", requireRole(adminOnly...), s.handleUpdateUserRole)

			auth.GET("/projetos", s.handleListProjects)
			auth.POST("/criar-projeto", s.handleCreateProject)
			auth.DELETE("/deletar-projeto", s.handleDeleteProject)
			auth.GET("/projects/id/:projectId", s.handleGetProject)

			auth.POST("/criar-sprint", s.handleCreateSprint)
			auth.POST("/finalizar-sprint", s.handleFinalizeSprint)
			auth.GET("/project/:projectId/sprints", s.handleListSprints)
			auth.GET("/project/:projectId/ended-sprints", s.handleListEndedSprints)

			auth.POST("/criar-daily", s.handleCreateDaily)
			auth.PUT("/atualizar-daily-tag", s.handleUpdateDailyTag)
			auth.DELETE("/deletar-daily/:dailyId", s.handleDeleteDaily)
			auth.POST("/finalizar-daily/:dailyId", s.handleFinalizeDaily)
			auth.GET("/project/:projectId/dailies", s.handleListDailies)
			auth.GET("/project/:projectId/finalized-dailies", s.handleListArchivedDailies)
		}
	}

	s.mountStatic()
}

// handleHealth reports readiness, including database reachability.
func (s *Server) handleHealth(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseID converts a path parameter to int64 with error handling.
func parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identifier"})
		return 0, false
	}
	return id, true
}

// statusFor maps an error kind onto an HTTP status.
func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs the error and returns a JSON payload with message and details.
func (s *Server) respondError(c *gin.Context, err error) {
	status := statusFor(err)

	attrs := []any{
		slog.String("path", c.FullPath()),
		slog.String("request_id", c.GetString(requestIDKey)),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", attrs...)
	} else {
		s.logger.Warn("request rejected", attrs...)
	}

	body := gin.H{}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		body["error"] = ae.Message
		if ae.Details != nil {
			body["details"] = ae.Details
		}
	} else {
		body["error"] = "internal server error"
		body["details"] = err.Error()
	}
	c.JSON(status, body)
}

// bindJSON decodes the request body, answering 400 on malformed input.
func (s *Server) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		s.respondError(c, apperr.Validation("invalid request body: %v", err))
		return false
	}
	return true
}

// respondSuccess wraps a payload in a JSON envelope for consistency.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
