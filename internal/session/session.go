// Package session owns the current-session projection: the bearer token plus
// the read-only user snapshot. It is the single source of truth consulted by
// every route guard, and its two writers, SetAuth and Logout, always update
// durable storage and the stored projection together, never one without the
// other.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/civictide/civicweb/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CookieName keys the browser to its server-held session record.
const CookieName = "civictide_session"

// Session is the projection held for one browser session.
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user,omitempty"`
}

// Authenticated is derived strictly from token presence; no backend
// validation happens until the first authenticated request.
func (s *Session) Authenticated() bool {
	return s != nil && s.Token != ""
}

// IsAdmin reports the admin flag on the user projection, false when absent.
func (s *Session) IsAdmin() bool {
	return s != nil && s.User != nil && s.User.IsAdmin
}

// KV is the durable storage under the session store.
type KV interface {
	// Get returns the stored value, or "" with a nil error when the key
	// does not exist.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Store reads and writes session projections keyed by session id.
type Store struct {
	kv     KV
	ttl    time.Duration
	logger *zap.SugaredLogger
	clock  func() time.Time
}

// NewStore creates a session store with the given record lifetime.
func NewStore(kv KV, ttl time.Duration, logger *zap.SugaredLogger) *Store {
	return &Store{kv: kv, ttl: ttl, logger: logger, clock: time.Now}
}

func key(sid string) string {
	return fmt.Sprintf("civicweb:session:%s", sid)
}

// SetAuth stores the user projection and token under the session id as one
// record, so a reader can never observe the token without its user.
func (st *Store) SetAuth(ctx context.Context, sid string, user models.User, token string) error {
	raw, err := json.Marshal(Session{Token: token, User: &user})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := st.kv.Set(ctx, key(sid), string(raw), st.ttl); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Logout clears the durable record. Memory-side state is re-derived from
// storage on every request, so the two can never diverge.
func (st *Store) Logout(ctx context.Context, sid string) error {
	if err := st.kv.Del(ctx, key(sid)); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Load seeds the session from durable storage. A token whose exp claim has
// visibly passed is discarded here instead of producing a guaranteed 401 on
// the first authenticated request; opaque tokens are kept as-is. Missing or
// unreadable records yield an unauthenticated session, never an error page.
func (st *Store) Load(ctx context.Context, sid string) *Session {
	if sid == "" {
		return &Session{}
	}
	raw, err := st.kv.Get(ctx, key(sid))
	if err != nil {
		st.logger.Warnw("session load failed", "error", err)
		return &Session{}
	}
	if raw == "" {
		return &Session{}
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		st.logger.Warnw("discarding unreadable session record", "error", err)
		_ = st.kv.Del(ctx, key(sid))
		return &Session{}
	}

	if st.tokenExpired(sess.Token) {
		st.logger.Infow("discarding expired session token")
		_ = st.kv.Del(ctx, key(sid))
		return &Session{}
	}
	return &sess
}

// tokenExpired inspects the token's exp claim without verifying the
// signature; the client holds no key, and verification is the server's job.
func (st *Store) tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(st.clock())
}

// Cookie plumbing

// ID extracts the session id from the request cookie, or "" when absent.
func ID(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// Issue mints a fresh session id and sets its cookie.
func Issue(w http.ResponseWriter, secure bool) string {
	sid := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	return sid
}

// Clear expires the session cookie.
func Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
