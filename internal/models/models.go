// Package models defines the data structures exchanged with the CivicTide
// backend API and the form payloads validated before dispatch.
// The backend owns every schema here; this client holds read-only projections.
package models

import (
	"time"

	"github.com/civictide/civicweb/internal/workflow"
)

// User is the read-only projection of the account owned by the auth service.
type User struct {
	ID        int       `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// Report is a community-submitted civic issue.
type Report struct {
	ID              int               `json:"id"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Category        workflow.Category `json:"category"`
	Status          workflow.Status   `json:"status"`
	Latitude        float64           `json:"latitude"`
	Longitude       float64           `json:"longitude"`
	Address         string            `json:"address,omitempty"`
	ImageURL        string            `json:"image_url,omitempty"`
	ResolutionNotes string            `json:"resolution_notes,omitempty"`
	UserID          int               `json:"user_id"`
	AuthorName      string            `json:"author_name,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       *time.Time        `json:"updated_at,omitempty"`
}

// ReportList is the backend's collection envelope.
type ReportList struct {
	Total   int      `json:"total"`
	Reports []Report `json:"reports"`
}

// Comment is an append-only engagement entry on a report.
type Comment struct {
	ID         int       `json:"id"`
	Content    string    `json:"content"`
	UserID     int       `json:"user_id"`
	ReportID   int       `json:"report_id"`
	AuthorName string    `json:"author_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// VoteState is the server-authoritative vote aggregate for one report.
// It always fully replaces local state; the client never increments locally.
type VoteState struct {
	ReportID     int  `json:"report_id"`
	VoteCount    int  `json:"vote_count"`
	UserHasVoted bool `json:"user_has_voted"`
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	User        User   `json:"user"`
	AccessToken string `json:"access_token"`
}

// DashboardStats backs the admin overview cards.
type DashboardStats struct {
	TotalReports   int                       `json:"total_reports"`
	TotalUsers     int                       `json:"total_users"`
	ResolutionRate float64                   `json:"resolution_rate"`
	ByStatus       map[workflow.Status]int   `json:"by_status"`
	ByCategory     map[workflow.Category]int `json:"by_category"`
}

// Form payloads, validated before dispatch

// LoginForm is the sign-in payload.
type LoginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterForm is the account-creation payload.
type RegisterForm struct {
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,min=7"`
}

// ReportForm is the submission payload. Coordinates must both be present
// before creation completes; the handler enforces this alongside the tags.
type ReportForm struct {
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description" validate:"required"`
	Category    string  `json:"category" validate:"required"`
	Latitude    float64 `json:"latitude" validate:"latitude"`
	Longitude   float64 `json:"longitude" validate:"longitude"`
	Address     string  `json:"address,omitempty"`
}

// CommentForm carries a new comment. Whitespace-only content is rejected
// before it ever reaches the backend.
type CommentForm struct {
	Content string `json:"content" validate:"required"`
}

// StatusUpdate is the privileged transition payload.
type StatusUpdate struct {
	Status          workflow.Status `json:"status" validate:"required"`
	ResolutionNotes string          `json:"resolution_notes,omitempty"`
}

// HealthStatus reports gateway health and its dependencies.
type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime,omitempty"`
	Session string `json:"session_store,omitempty"`
	Backend string `json:"backend,omitempty"`
}
