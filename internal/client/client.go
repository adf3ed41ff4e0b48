// Package client talks to the sprintboard HTTP API with a session cookie. It satisfies
// board.API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"time"

	"sprintboard/internal/apperr"
	"sprintboard/internal/models"
)

const defaultTimeout = 15 * time.Second

// Client is an authenticated API client. Use Login before calling protected endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

type apiError struct {
	Error   string `json:"error"`
	Details any    `json:"details"`
}

// New creates a client for the server at baseURL, e.g. http://localhost:8080.
func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/api",
		http:    &http.Client{Jar: jar, Timeout: defaultTimeout},
	}, nil
}

// Login opens a session for email.
func (c *Client) Login(ctx context.Context, email, password string) (models.User, error) {
	var resp struct {
		User models.User `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/login", map[string]string{"email": email, "password": password}, &resp)
	return resp.User, err
}

// Projects lists the projects visible to the logged-in user.
func (c *Client) Projects(ctx context.Context) ([]models.Project, error) {
	var out []models.Project
	err := c.do(ctx, http.MethodGet, "/projetos", nil, &out)
	return out, err
}

// ListSprints lists the active sprints of a project.
func (c *Client) ListSprints(ctx context.Context, projectID int64) ([]models.Sprint, error) {
	var out []models.Sprint
	err := c.do(ctx, http.MethodGet, projectPath(projectID, "sprints"), nil, &out)
	return out, err
}

// ListDailies lists the live dailies of a project across its sprints.
func (c *Client) ListDailies(ctx context.Context, projectID int64) ([]models.Daily, error) {
	var out []models.Daily
	err := c.do(ctx, http.MethodGet, projectPath(projectID, "dailies"), nil, &out)
	return out, err
}

// EndedSprints lists finalized sprints with their daily snapshots.
func (c *Client) EndedSprints(ctx context.Context, projectID int64) ([]models.FinalizedSprint, error) {
	var out []models.FinalizedSprint
	err := c.do(ctx, http.MethodGet, projectPath(projectID, "ended-sprints"), nil, &out)
	return out, err
}

// CreateSprint opens a sprint in projectID.
func (c *Client) CreateSprint(ctx context.Context, projectID int64, name, deliveryDate string) (models.Sprint, error) {
	var resp struct {
		Sprint models.Sprint `json:"sprint"`
	}
	body := map[string]any{"projectId": projectID, "name": name, "deliveryDate": deliveryDate}
	err := c.do(ctx, http.MethodPost, "/criar-sprint", body, &resp)
	return resp.Sprint, err
}

// CreateDaily adds a daily to a sprint. ID, CreatedBy and CreatedAt are ignored.
func (c *Client) CreateDaily(ctx context.Context, d models.Daily) (models.Daily, error) {
	var resp struct {
		Daily models.Daily `json:"daily"`
	}
	body := map[string]any{
		"projectId":    d.ProjectID,
		"sprintId":     d.SprintID,
		"name":         d.Name,
		"description":  d.Description,
		"deliveryDate": d.DeliveryDate,
		"tag":          d.Tag,
	}
	err := c.do(ctx, http.MethodPost, "/criar-daily", body, &resp)
	return resp.Daily, err
}

// UpdateDailyTag fails with a NotFound error when the server changed no row.
func (c *Client) UpdateDailyTag(ctx context.Context, dailyID int64, tag models.Tag) error {
	var resp struct {
		RowsAffected int64 `json:"rowsAffected"`
	}
	body := map[string]any{"dailyId": dailyID, "newTag": tag}
	if err := c.do(ctx, http.MethodPut, "/atualizar-daily-tag", body, &resp); err != nil {
		return err
	}
	if resp.RowsAffected == 0 {
		return apperr.NotFound("daily %d not found", dailyID)
	}
	return nil
}

// DeleteDaily removes a live daily without archiving it.
func (c *Client) DeleteDaily(ctx context.Context, dailyID int64) error {
	return c.do(ctx, http.MethodDelete, "/deletar-daily/"+strconv.FormatInt(dailyID, 10), nil, nil)
}

// FinalizeSprint archives a sprint with its scores and returns the finalized sprint id.
func (c *Client) FinalizeSprint(ctx context.Context, projectID, sprintID int64, name string, scores models.EvaluationScores) (int64, error) {
	var resp struct {
		SprintID int64 `json:"sprintId"`
	}
	body := map[string]any{
		"projectId":        projectID,
		"sprintId":         sprintID,
		"name":             name,
		"evaluationScores": scores,
	}
	err := c.do(ctx, http.MethodPost, "/finalizar-sprint", body, &resp)
	return resp.SprintID, err
}

func projectPath(projectID int64, suffix string) string {
	return "/project/" + strconv.FormatInt(projectID, 10) + "/" + suffix
}

// do sends one request. Mutations are never retried.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, respBody)
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeError turns an error response back into an *apperr.Error of the matching kind.
func decodeError(status int, body []byte) error {
	var payload apiError
	if json.Unmarshal(body, &payload) != nil || payload.Error == "" {
		payload.Error = strings.TrimSpace(string(body))
		if payload.Error == "" {
			payload.Error = http.StatusText(status)
		}
	}

	kind := apperr.KindTransactionFailure
	switch status {
	case http.StatusNotFound:
		kind = apperr.KindNotFound
	case http.StatusForbidden:
		kind = apperr.KindForbidden
	case http.StatusBadRequest:
		kind = apperr.KindValidation
	case http.StatusUnauthorized:
		kind = apperr.KindUnauthorized
	}
	return &apperr.Error{
		Kind:    kind,
		Message: payload.Error,
		Details: payload.Details,
		Err:     fmt.Errorf("server answered %d", status),
	}
}
