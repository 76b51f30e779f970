package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/civictide/civicweb/internal/backend"
	"github.com/civictide/civicweb/internal/middleware"
	"github.com/civictide/civicweb/internal/session"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// EngagementHandler serves votes and comments.
type EngagementHandler struct {
	backend *backend.Client
	store   *session.Store
	logger  *zap.SugaredLogger
}

// NewEngagementHandler creates an engagement handler.
func NewEngagementHandler(client *backend.Client, store *session.Store, logger *zap.SugaredLogger) *EngagementHandler {
	return &EngagementHandler{backend: client, store: store, logger: logger}
}

func (h *EngagementHandler) authFailed(w http.ResponseWriter, r *http.Request, err error) bool {
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

func reportID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid report id")
		return 0, false
	}
	return id, true
}

// Votes handles GET /api/reports/{id}/votes.
func (h *EngagementHandler) Votes(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}
	sess := middleware.SessionFrom(r)
	state, err := h.backend.Votes(r.Context(), sess.Token, id)
	if err != nil {
		if h.authFailed(w, r, err) {
			return
		}
		respondBackendError(w, err, "Failed to load votes.")
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// ToggleVote handles POST /api/reports/{id}/vote. An unauthenticated actor
// gets the generic sign-in prompt; the server's aggregate fully replaces
// whatever the page was showing.
func (h *EngagementHandler) ToggleVote(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}
	sess := middleware.SessionFrom(r)
	if !sess.Authenticated() {
		respondError(w, http.StatusUnauthorized, "Please log in to upvote reports")
		return
	}

	state, err := h.backend.ToggleVote(r.Context(), sess.Token, id)
	if err != nil {
		if h.authFailed(w, r, err) {
			return
		}
		respondBackendError(w, err, "Failed to vote")
		return
	}

	message := "Vote removed"
	if state.UserHasVoted {
		message = "Upvoted!"
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"vote_count":     state.VoteCount,
		"user_has_voted": state.UserHasVoted,
		"message":        message,
	})
}

// Comments handles GET /api/reports/{id}/comments.
func (h *EngagementHandler) Comments(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}
	comments, err := h.backend.Comments(r.Context(), id)
	if err != nil {
		respondBackendError(w, err, "Failed to load comments.")
		return
	}
	respondJSON(w, http.StatusOK, comments)
}

// AddComment handles POST /api/reports/{id}/comments. Empty or
// whitespace-only content never reaches the backend.
func (h *EngagementHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}
	sess := middleware.SessionFrom(r)
	if !sess.Authenticated() {
		respondError(w, http.StatusUnauthorized, "Please log in to comment")
		return
	}

	var body struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	content := strings.TrimSpace(body.Content)
	if content == "" {
		respondError(w, http.StatusBadRequest, "Comment cannot be empty")
		return
	}

	comment, err := h.backend.AddComment(r.Context(), sess.Token, id, content)
	if err != nil {
		if h.authFailed(w, r, err) {
			return
		}
		respondBackendError(w, err, "Failed to add comment")
		return
	}
	respondJSON(w, http.StatusCreated, comment)
}

// DeleteComment handles DELETE /api/comments/{id}. The page removes the
// comment optimistically on success; comments sit outside the report
// refresh cycle, so no reload follows.
func (h *EngagementHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid comment id")
		return
	}
	sess := middleware.SessionFrom(r)
	if !sess.Authenticated() {
		respondError(w, http.StatusUnauthorized, "Please sign in to continue.")
		return
	}

	if err := h.backend.DeleteComment(r.Context(), sess.Token, id); err != nil {
		if h.authFailed(w, r, err) {
			return
		}
		respondBackendError(w, err, "Failed to delete comment")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Comment deleted"})
}
