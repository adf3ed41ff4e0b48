package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"sprintboard/internal/apperr"
	"sprintboard/internal/models"
	"sprintboard/internal/storage"
)

type sprintRequest struct {
	ProjectID    int64  `json:"projectId"`
	Name         string `json:"name"`
	DeliveryDate string `json:"deliveryDate"`
}

type finalizeSprintRequest struct {
	ProjectID        int64          `json:"projectId"`
	SprintID         int64          `json:"sprintId"`
	Name             string         `json:"name"`
	EvaluationScores *scoresRequest `json:"evaluationScores"`
}

// scoresRequest tells an omitted score apart from an explicit zero.
type scoresRequest struct {
	Activities    *int `json:"activities"`
	Team          *int `json:"team"`
	Communication *int `json:"communication"`
	Deliveries    *int `json:"deliveries"`
}

func (r *scoresRequest) scores() (models.EvaluationScores, error) {
	if r == nil {
		return models.EvaluationScores{}, apperr.Validation("evaluationScores is required")
	}
	var missing []string
	for _, f := range []struct {
		name  string
		value *int
	}{
		{"activities", r.Activities},
		{"team", r.Team},
		{"communication", r.Communication},
		{"deliveries", r.Deliveries},
	} {
		if f.value == nil {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return models.EvaluationScores{}, apperr.Validation("evaluationScores is missing %s", strings.Join(missing, ", "))
	}
	return models.EvaluationScores{
		Activities:    *r.Activities,
		Team:          *r.Team,
		Communication: *r.Communication,
		Deliveries:    *r.Deliveries,
	}, nil
}

// handleCreateSprint opens a new sprint in a project.
func (s *Server) handleCreateSprint(c *gin.Context) {
	var req sprintRequest
	if !s.bindJSON(c, &req) {
		return
	}

	sprint, err := s.store.CreateSprint(c.Request.Context(), req.ProjectID, req.Name, req.DeliveryDate, requester(c).ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"message": "sprint created", "sprint": sprint})
}

// handleFinalizeSprint archives a sprint with its evaluation.
func (s *Server) handleFinalizeSprint(c *gin.Context) {
	var req finalizeSprintRequest
	if !s.bindJSON(c, &req) {
		return
	}
	scores, err := req.EvaluationScores.scores()
	if err != nil {
		s.respondError(c, err)
		return
	}

	finalized, err := s.store.FinalizeSprint(c.Request.Context(), storage.FinalizeSprintInput{
		ProjectID:   req.ProjectID,
		SprintID:    req.SprintID,
		Name:        req.Name,
		Scores:      scores,
		FinalizerID: requester(c).ID,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"message": "sprint finalized", "sprintId": finalized.ID})
}

// handleListSprints returns the active sprints of a project.
func (s *Server) handleListSprints(c *gin.Context) {
	projectID, ok := parseID(c, "projectId")
	if !ok {
		return
	}

	sprints, err := s.store.ListSprints(c.Request.Context(), projectID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, sprints)
}

// handleListEndedSprints returns finalized sprints with their daily snapshots.
func (s *Server) handleListEndedSprints(c *gin.Context) {
	projectID, ok := parseID(c, "projectId")
	if !ok {
		return
	}

	ended, err := s.store.ListEndedSprints(c.Request.Context(), projectID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, ended)
}
