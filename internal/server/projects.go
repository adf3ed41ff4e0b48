package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sprintboard/internal/storage"
)

type projectRequest struct {
	ProjectName    string  `json:"projectName"`
	ProjectDesc    string  `json:"projectDesc"`
	DeliveryDate   string  `json:"deliveryDate"`
	ProjectMembers []int64 `json:"projectMembers"`
}

type deleteProjectRequest struct {
	ProjectID int64 `json:"projectId"`
}

// handleListProjects returns the projects visible to the caller.
func (s *Server) handleListProjects(c *gin.Context) {
	projects, err := s.store.ListProjects(c.Request.Context(), requester(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, projects)
}

// handleCreateProject creates a project owned by the caller.
func (s *Server) handleCreateProject(c *gin.Context) {
	var req projectRequest
	if !s.bindJSON(c, &req) {
		return
	}

	project, err := s.store.CreateProject(c.Request.Context(), storage.NewProject{
		Name:         req.ProjectName,
		Description:  req.ProjectDesc,
		DeliveryDate: req.DeliveryDate,
		MemberIDs:    req.ProjectMembers,
		OwnerID:      requester(c).ID,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"message": "project created", "project": project})
}

// handleDeleteProject removes a project and all related records.
func (s *Server) handleDeleteProject(c *gin.Context) {
	var req deleteProjectRequest
	if !s.bindJSON(c, &req) {
		return
	}

	if err := s.store.DeleteProject(c.Request.Context(), req.ProjectID, requester(c)); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"message": "project deleted", "deletedProjectId": req.ProjectID})
}

// handleGetProject returns a project with its member names.
func (s *Server) handleGetProject(c *gin.Context) {
	id, ok := parseID(c, "projectId")
	if !ok {
		return
	}

	project, err := s.store.ProjectDetail(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, project)
}
