package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/civictide/civicweb/internal/backend"
	"github.com/civictide/civicweb/internal/middleware"
	"github.com/civictide/civicweb/internal/models"
	"github.com/civictide/civicweb/internal/session"
	"github.com/civictide/civicweb/internal/triage"
	"github.com/civictide/civicweb/internal/workflow"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AdminHandler serves the triage view: grouped overview, status
// transitions, and bulk clearing.
type AdminHandler struct {
	triage *triage.Service
	store  *session.Store
	logger *zap.SugaredLogger
}

// NewAdminHandler creates an admin handler.
func NewAdminHandler(svc *triage.Service, store *session.Store, logger *zap.SugaredLogger) *AdminHandler {
	return &AdminHandler{triage: svc, store: store, logger: logger}
}

func (h *AdminHandler) authFailed(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, backend.ErrUnauthorized) {
		return false
	}
	if sid := session.ID(r); sid != "" {
		_ = h.store.Logout(r.Context(), sid)
	}
	session.Clear(w)
	respondError(w, http.StatusUnauthorized, "Please sign in to continue.")
	return true
}

// Overview handles GET /admin.
func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFrom(r)
	view, err := h.triage.Load(r.Context(), sess.Token)
	if err != nil {
		if h.authFailed(w, r, err) {
			return
		}
		respondBackendError(w, err, "Failed to load dashboard.")
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Transition handles PATCH /admin/reports/{id}/status. On success the
// response carries the fully refreshed overview, never a local patch.
func (h *AdminHandler) Transition(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid report id")
		return
	}

	var update models.StatusUpdate
	if err := decodeJSON(r, &update); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess := middleware.SessionFrom(r)
	view, err := h.triage.Transition(r.Context(), sess.Token, id, update)
	if err != nil {
		if h.authFailed(w, r, err) {
			return
		}
		respondBackendError(w, err, "Failed to update status.")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message":  "Status updated!",
		"overview": view,
	})
}

// ClearBucket handles DELETE /admin/buckets/{status}. Partial failure is
// reported as one aggregate notification; the refreshed overview reflects
// whatever actually survived.
func (h *AdminHandler) ClearBucket(w http.ResponseWriter, r *http.Request) {
	status := workflow.Status(chi.URLParam(r, "status"))

	sess := middleware.SessionFrom(r)
	deleted, view, err := h.triage.ClearBucket(r.Context(), sess.Token, status)
	if err != nil {
		if h.authFailed(w, r, err) {
			return
		}
		h.logger.Warnw("bucket clear incomplete", "status", status, "deleted", deleted, "error", err)
		respondJSON(w, http.StatusBadGateway, map[string]any{
			"error":    backend.Message(err, "Some reports could not be deleted."),
			"deleted":  deleted,
			"overview": view,
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message":  workflow.StatusLabel(status) + " reports cleared",
		"deleted":  deleted,
		"overview": view,
	})
}
