package models

import (
	"time"

	"sprintboard/internal/apperr"
)

// Role governs who may delete projects and change other users' roles.
type Role string

const (
	RoleUser    Role = "Usuário"
	RoleManager Role = "Gerente"
	RoleAdmin   Role = "Admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// Elevated reports whether r may manage projects it does not own.
func (r Role) Elevated() bool {
	return r == RoleAdmin || r == RoleManager
}

// Tag is the board column of a daily task.
type Tag string

const (
	TagPending    Tag = "Pendente"
	TagInProgress Tag = "Em progresso"
	TagCompleted  Tag = "Concluido"
)

// Tags lists the board columns in display order.
var Tags = []Tag{TagPending, TagInProgress, TagCompleted}

// Valid reports whether t names one of the three board columns.
func (t Tag) Valid() bool {
	switch t {
	case TagPending, TagInProgress, TagCompleted:
		return true
	}
	return false
}

// User is an account able to own and join projects.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Image        string    `json:"image,omitempty"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Requester identifies the caller of a store operation.
type Requester struct {
	ID   int64
	Role Role
}

// Project groups sprints and their dailies. The owner is always a member.
type Project struct {
	ID           int64     `json:"id"`
	Name         string    `json:"projectName"`
	Description  string    `json:"projectDesc"`
	DeliveryDate string    `json:"deliveryDate"`
	OwnerID      int64     `json:"ownerId"`
	MemberIDs    []int64   `json:"memberIds"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ProjectDetail is a project with its member names joined for display.
type ProjectDetail struct {
	ID             int64  `json:"id"`
	Name           string `json:"projectName"`
	Description    string `json:"description"`
	EndDate        string `json:"endDate"`
	ProjectMembers string `json:"projectMembers"`
}

// Sprint is an active, time-boxed group of dailies.
type Sprint struct {
	ID           int64     `json:"id"`
	ProjectID    int64     `json:"projectId"`
	Name         string    `json:"name"`
	DeliveryDate string    `json:"deliveryDate"`
	CreatedBy    int64     `json:"createdBy"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Daily is a task card on the board.
type Daily struct {
	ID           int64     `json:"id"`
	ProjectID    int64     `json:"projectId"`
	SprintID     int64     `json:"sprintId"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	DeliveryDate string    `json:"deliveryDate"`
	Tag          Tag       `json:"tag"`
	CreatedBy    int64     `json:"createdBy"`
	CreatedAt    time.Time `json:"createdAt"`
}

// EvaluationScores rates a finished sprint; every score is within 0..100.
type EvaluationScores struct {
	Activities    int `json:"activities"`
	Team          int `json:"team"`
	Communication int `json:"communication"`
	Deliveries    int `json:"deliveries"`
}

// Validate checks that every score lies within 0..100.
func (s EvaluationScores) Validate() error {
	scores := []struct {
		name  string
		value int
	}{
		{"activities", s.Activities},
		{"team", s.Team},
		{"communication", s.Communication},
		{"deliveries", s.Deliveries},
	}
	for _, sc := range scores {
		if sc.value < 0 || sc.value > 100 {
			return apperr.Validation("%s score must be between 0 and 100, got %d", sc.name, sc.value)
		}
	}
	return nil
}

// FinalizedSprint is the immutable archive of a sprint.
type FinalizedSprint struct {
	ID               int64            `json:"id"`
	ProjectID        int64            `json:"projectId"`
	Name             string           `json:"name"`
	EvaluationScores EvaluationScores `json:"evaluationScores"`
	FinalizedBy      int64            `json:"finalizedBy"`
	FinalizedAt      time.Time        `json:"finalizedAt"`
	Dailies          []FinalizedDaily `json:"dailies"`
}

// FinalizedDaily is a snapshot of a daily taken when it or its sprint was finalized.
// FinalizedSprintID is nil for dailies archived on their own.
type FinalizedDaily struct {
	ID                int64     `json:"id"`
	ProjectID         int64     `json:"projectId"`
	FinalizedSprintID *int64    `json:"finalizedSprintId"`
	SourceSprintID    int64     `json:"sourceSprintId"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	DeliveryDate      string    `json:"deliveryDate"`
	Tag               Tag       `json:"tag"`
	FinalizedBy       int64     `json:"finalizedBy"`
	FinalizedAt       time.Time `json:"finalizedAt"`
}
