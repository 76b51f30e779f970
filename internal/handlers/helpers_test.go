package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/civictide/civicweb/internal/backend"
	"github.com/civictide/civicweb/internal/directory"
	"github.com/civictide/civicweb/internal/middleware"
	"github.com/civictide/civicweb/internal/models"
	"github.com/civictide/civicweb/internal/session"
	"github.com/civictide/civicweb/internal/triage"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type kvFake struct {
	mu   sync.Mutex
	data map[string]string
}

func newKV() *kvFake {
	return &kvFake{data: map[string]string{}}
}

func (k *kvFake) Get(_ context.Context, key string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.data[key], nil
}

func (k *kvFake) Set(_ context.Context, key, value string, _ time.Duration) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.data[key] = value
	return nil
}

func (k *kvFake) Del(_ context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.data, key)
	return nil
}

func (k *kvFake) len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.data)
}

// env wires the handlers against a fake backend the way main does.
type env struct {
	kv     *kvFake
	store  *session.Store
	router chi.Router
}

func newEnv(t *testing.T, backendFn http.HandlerFunc) *env {
	t.Helper()

	srv := httptest.NewServer(backendFn)
	t.Cleanup(srv.Close)

	logger := zap.NewNop().Sugar()
	kv := newKV()
	store := session.NewStore(kv, time.Hour, logger)
	api := backend.New(srv.URL, 5*time.Second, logger)
	dir := directory.New(api, logger)

	auth := NewAuthHandler(api, store, false, logger)
	reports := NewReportsHandler(api, dir, store, logger)
	engagement := NewEngagementHandler(api, store, logger)
	admin := NewAdminHandler(triage.New(api, logger), store, logger)

	r := chi.NewRouter()
	r.Use(middleware.WithSession(store))
	r.Post("/login", auth.Login)
	r.Post("/register", auth.Register)
	r.Post("/logout", auth.Logout)
	r.Get("/api/me", auth.Me)
	r.Get("/reports", reports.List)
	r.Get("/reports/{id}", reports.Detail)
	r.Get("/map", reports.MapData)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth())
		r.Post("/submit", reports.Submit)
		r.Get("/dashboard", reports.Dashboard)
	})
	r.Route("/api/reports/{id}", func(r chi.Router) {
		r.Get("/votes", engagement.Votes)
		r.Post("/vote", engagement.ToggleVote)
		r.Get("/comments", engagement.Comments)
		r.Post("/comments", engagement.AddComment)
	})
	r.Delete("/api/comments/{id}", engagement.DeleteComment)
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdmin())
		r.Get("/", admin.Overview)
		r.Patch("/reports/{id}/status", admin.Transition)
		r.Delete("/buckets/{status}", admin.ClearBucket)
	})

	return &env{kv: kv, store: store, router: r}
}

// signIn seeds a session record and returns the matching cookie.
func (e *env) signIn(t *testing.T, user models.User, token string) *http.Cookie {
	t.Helper()
	sid := "sid-" + t.Name()
	require.NoError(t, e.store.SetAuth(context.Background(), sid, user, token))
	return &http.Cookie{Name: session.CookieName, Value: sid}
}

func (e *env) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}
