package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sprintboard/internal/models"
	"sprintboard/internal/storage"
)

type dailyRequest struct {
	ProjectID    int64      `json:"projectId"`
	SprintID     int64      `json:"sprintId"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	DeliveryDate string     `json:"deliveryDate"`
	Tag          models.Tag `json:"tag"`
}

type tagRequest struct {
	DailyID int64      `json:"dailyId"`
	NewTag  models.Tag `json:"newTag"`
}

// handleCreateDaily inserts a new daily into a sprint column.
func (s *Server) handleCreateDaily(c *gin.Context) {
	var req dailyRequest
	if !s.bindJSON(c, &req) {
		return
	}

	daily, err := s.store.CreateDaily(c.Request.Context(), storage.NewDaily{
		ProjectID:    req.ProjectID,
		SprintID:     req.SprintID,
		Name:         req.Name,
		Description:  req.Description,
		DeliveryDate: req.DeliveryDate,
		Tag:          req.Tag,
		CreatorID:    requester(c).ID,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"message": "daily created", "daily": daily})
}

// handleUpdateDailyTag moves a daily to another column.
func (s *Server) handleUpdateDailyTag(c *gin.Context) {
	var req tagRequest
	if !s.bindJSON(c, &req) {
		return
	}

	n, err := s.store.UpdateDailyTag(c.Request.Context(), req.DailyID, req.NewTag)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"message": "daily tag updated", "rowsAffected": n})
}

// handleDeleteDaily removes a daily completely.
func (s *Server) handleDeleteDaily(c *gin.Context) {
	id, ok := parseID(c, "dailyId")
	if !ok {
		return
	}

	n, err := s.store.DeleteDaily(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"message": "daily deleted", "rowsAffected": n})
}

// handleFinalizeDaily archives a single daily.
func (s *Server) handleFinalizeDaily(c *gin.Context) {
	id, ok := parseID(c, "dailyId")
	if !ok {
		return
	}

	fd, err := s.store.FinalizeDaily(c.Request.Context(), id, requester(c).ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"message": "daily finalized", "finalizedDaily": fd})
}

// handleListDailies fetches the live dailies of a project.
func (s *Server) handleListDailies(c *gin.Context) {
	projectID, ok := parseID(c, "projectId")
	if !ok {
		return
	}

	dailies, err := s.store.ListDailies(c.Request.Context(), projectID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, dailies)
}

// handleListArchivedDailies fetches dailies finalized outside a sprint.
func (s *Server) handleListArchivedDailies(c *gin.Context) {
	projectID, ok := parseID(c, "projectId")
	if !ok {
		return
	}

	archived, err := s.store.ListArchivedDailies(c.Request.Context(), projectID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, archived)
}
