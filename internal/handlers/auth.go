package handlers

import (
	"errors"
	"net/http"

	"github.com/civictide/civicweb/internal/backend"
	"github.com/civictide/civicweb/internal/middleware"
	"github.com/civictide/civicweb/internal/models"
	"github.com/civictide/civicweb/internal/session"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// AuthHandler drives sign-in, registration, and sign-out.
type AuthHandler struct {
	backend       *backend.Client
	store         *session.Store
	validate      *validator.Validate
	secureCookies bool
	logger        *zap.SugaredLogger
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(client *backend.Client, store *session.Store, secureCookies bool, logger *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{
		backend:       client,
		store:         store,
		validate:      validator.New(),
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// Login handles POST /login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var form models.LoginForm
	if err := decodeJSON(r, &form); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(form); err != nil {
		respondValidationError(w, err)
		return
	}

	auth, err := h.backend.Login(r.Context(), form)
	if err != nil {
		respondBackendError(w, err, "Sign in failed. Check your email and password.")
		return
	}

	h.establish(w, r, auth)
}

// Register handles POST /register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var form models.RegisterForm
	if err := decodeJSON(r, &form); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(form); err != nil {
		respondValidationError(w, err)
		return
	}

	auth, err := h.backend.Register(r.Context(), form)
	if err != nil {
		respondBackendError(w, err, "Registration failed.")
		return
	}

	h.establish(w, r, auth)
}

// establish stores the projection and token together and hands the browser
// its session cookie.
func (h *AuthHandler) establish(w http.ResponseWriter, r *http.Request, auth *models.AuthResponse) {
	sid := session.Issue(w, h.secureCookies)
	if err := h.store.SetAuth(r.Context(), sid, auth.User, auth.AccessToken); err != nil {
		h.logger.Errorw("failed to persist session", "error", err)
		session.Clear(w)
		respondError(w, http.StatusInternalServerError, "Could not start your session. Please try again.")
		return
	}
	h.logger.Infow("session established", "user_id", auth.User.ID)
	respondJSON(w, http.StatusOK, map[string]any{
		"user":     auth.User,
		"redirect": "/dashboard",
	})
}

// Logout handles POST /logout: durable record and cookie go together.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sid := session.ID(r); sid != "" {
		if err := h.store.Logout(r.Context(), sid); err != nil {
			h.logger.Warnw("session cleanup failed", "error", err)
		}
	}
	session.Clear(w)
	respondJSON(w, http.StatusOK, map[string]string{"redirect": "/"})
}

// Me handles GET /api/me: the current session projection. A session seeded
// from durable storage may hold a token without a user snapshot; the
// projection is then rehydrated from the backend, and a rejected token
// clears the session exactly like an explicit logout.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFrom(r)
	if !sess.Authenticated() {
		respondJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	if sess.User == nil {
		user, err := h.backend.Me(r.Context(), sess.Token)
		if errors.Is(err, backend.ErrUnauthorized) {
			h.expireSession(w, r)
			respondJSON(w, http.StatusOK, map[string]any{"authenticated": false})
			return
		}
		if err != nil {
			respondBackendError(w, err, "Could not load your profile.")
			return
		}
		sess.User = user
		if err := h.store.SetAuth(r.Context(), session.ID(r), *user, sess.Token); err != nil {
			h.logger.Warnw("failed to refresh session projection", "error", err)
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          sess.User,
		"is_admin":      sess.IsAdmin(),
	})
}

// expireSession applies the logout-on-rejected-credentials rule.
func (h *AuthHandler) expireSession(w http.ResponseWriter, r *http.Request) {
	if sid := session.ID(r); sid != "" {
		_ = h.store.Logout(r.Context(), sid)
	}
	session.Clear(w)
	h.logger.Infow("session cleared after rejected credentials")
}
