// Package backend is the typed client for the CivicTide REST API.
// The API is an external collaborator: it owns persistence, authentication
// issuance, image storage, and authorization. This package only wraps its
// HTTP surface, attaches the bearer token, and translates failures into
// errors the views can act on.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/civictide/civicweb/internal/models"
	"github.com/civictide/civicweb/internal/workflow"
	"go.uber.org/zap"
)

// Sentinel errors for the two failure classes the views distinguish from
// generic transport errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
)

// APIError carries the backend's status code and its message when one was
// provided. The backend reports messages under a "detail" key.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend: %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("backend: %d", e.StatusCode)
}

// Unwrap maps status codes to the sentinels so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	}
	return nil
}

// Message returns the user-facing text for a failed call: the backend's
// message when present, else the generic fallback.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}

// Client talks to the CivicTide backend. Methods never retry: every failure
// is surfaced once and left to the user to re-trigger.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.SugaredLogger
}

// New creates a backend client for the given base URL.
func New(baseURL string, timeout time.Duration, logger *zap.SugaredLogger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// ReportFilter narrows the report listing. Zero values mean "no filter".
type ReportFilter struct {
	Category workflow.Category
	Status   workflow.Status
}

func (f ReportFilter) query() string {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", string(f.Category))
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// Health probes the backend's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	if err := c.doJSON(ctx, http.MethodGet, "/health", "", nil, nil); err != nil {
		return fmt.Errorf("backend health: %w", err)
	}
	return nil
}

// Auth endpoints

// Login exchanges credentials for a user projection and bearer token.
func (c *Client) Login(ctx context.Context, form models.LoginForm) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", "", form, &out); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &out, nil
}

// Register creates an account and signs it in.
func (c *Client) Register(ctx context.Context, form models.RegisterForm) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", "", form, &out); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return &out, nil
}

// Me fetches the current user projection for a token.
func (c *Client) Me(ctx context.Context, token string) (*models.User, error) {
	var out models.User
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", token, nil, &out); err != nil {
		return nil, fmt.Errorf("me: %w", err)
	}
	return &out, nil
}

// Report endpoints

// ListReports requests the full matching set for the active filters.
func (c *Client) ListReports(ctx context.Context, filter ReportFilter) (*models.ReportList, error) {
	var out models.ReportList
	if err := c.doJSON(ctx, http.MethodGet, "/reports/"+filter.query(), "", nil, &out); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return &out, nil
}

// GetReport fetches a single report by id.
func (c *Client) GetReport(ctx context.Context, id int) (*models.Report, error) {
	var out models.Report
	if err := c.doJSON(ctx, http.MethodGet, "/reports/"+strconv.Itoa(id), "", nil, &out); err != nil {
		return nil, fmt.Errorf("get report %d: %w", id, err)
	}
	return &out, nil
}

// MyReports fetches the reports owned by the token's user.
func (c *Client) MyReports(ctx context.Context, token string) (*models.ReportList, error) {
	var out models.ReportList
	if err := c.doJSON(ctx, http.MethodGet, "/reports/my/reports", token, nil, &out); err != nil {
		return nil, fmt.Errorf("my reports: %w", err)
	}
	return &out, nil
}

// CreateReport submits a new report as multipart form data. The image reader
// is optional; ownership of the created report is fixed server-side at
// creation and never reassigned.
func (c *Client) CreateReport(ctx context.Context, token string, form models.ReportForm, image io.Reader, imageName string) (*models.Report, error) {
	body, contentType, err := encodeReportForm(form, image, imageName)
	if err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/reports/", body)
	if err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	var out models.Report
	if err := c.send(req, token, &out); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	return &out, nil
}

// UpdateStatus issues a privileged status transition.
func (c *Client) UpdateStatus(ctx context.Context, token string, id int, update models.StatusUpdate) (*models.Report, error) {
	var out models.Report
	path := fmt.Sprintf("/reports/%d/status", id)
	if err := c.doJSON(ctx, http.MethodPatch, path, token, update, &out); err != nil {
		return nil, fmt.Errorf("update status of report %d: %w", id, err)
	}
	return &out, nil
}

// DeleteReport permanently deletes a report.
func (c *Client) DeleteReport(ctx context.Context, token string, id int) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/reports/"+strconv.Itoa(id), token, nil, nil); err != nil {
		return fmt.Errorf("delete report %d: %w", id, err)
	}
	return nil
}

// Admin endpoints

// Stats fetches the admin dashboard aggregates.
func (c *Client) Stats(ctx context.Context, token string) (*models.DashboardStats, error) {
	var out models.DashboardStats
	if err := c.doJSON(ctx, http.MethodGet, "/admin/stats", token, nil, &out); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return &out, nil
}

// Engagement endpoints

// Votes reads the vote aggregate for a report.
func (c *Client) Votes(ctx context.Context, token string, reportID int) (*models.VoteState, error) {
	var out models.VoteState
	path := fmt.Sprintf("/engagement/reports/%d/votes", reportID)
	if err := c.doJSON(ctx, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, fmt.Errorf("votes for report %d: %w", reportID, err)
	}
	return &out, nil
}

// ToggleVote flips the caller's vote membership and returns the new
// authoritative aggregate.
func (c *Client) ToggleVote(ctx context.Context, token string, reportID int) (*models.VoteState, error) {
	var out models.VoteState
	path := fmt.Sprintf("/engagement/reports/%d/vote", reportID)
	if err := c.doJSON(ctx, http.MethodPost, path, token, nil, &out); err != nil {
		return nil, fmt.Errorf("toggle vote on report %d: %w", reportID, err)
	}
	return &out, nil
}

// Comments lists the comments on a report, oldest first.
func (c *Client) Comments(ctx context.Context, reportID int) ([]models.Comment, error) {
	var out []models.Comment
	path := fmt.Sprintf("/engagement/reports/%d/comments", reportID)
	if err := c.doJSON(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return nil, fmt.Errorf("comments for report %d: %w", reportID, err)
	}
	return out, nil
}

// AddComment appends a comment to a report.
func (c *Client) AddComment(ctx context.Context, token string, reportID int, content string) (*models.Comment, error) {
	var out models.Comment
	path := fmt.Sprintf("/engagement/reports/%d/comments", reportID)
	if err := c.doJSON(ctx, http.MethodPost, path, token, models.CommentForm{Content: content}, &out); err != nil {
		return nil, fmt.Errorf("add comment to report %d: %w", reportID, err)
	}
	return &out, nil
}

// DeleteComment removes a comment. The backend enforces that only the
// author or an admin may do this.
func (c *Client) DeleteComment(ctx context.Context, token string, commentID int) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/engagement/comments/"+strconv.Itoa(commentID), token, nil, nil); err != nil {
		return fmt.Errorf("delete comment %d: %w", commentID, err)
	}
	return nil
}

// Transport helpers

func (c *Client) doJSON(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, token, out)
}

func (c *Client) send(req *http.Request, token string, out any) error {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.apiError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) apiError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var body struct {
		Detail string `json:"detail"`
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && json.Unmarshal(raw, &body) == nil {
		apiErr.Detail = body.Detail
	}

	c.logger.Warnw("backend request failed",
		"method", resp.Request.Method,
		"path", resp.Request.URL.Path,
		"status", resp.StatusCode,
	)
	return apiErr
}
