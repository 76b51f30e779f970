// Package main is the entry point for the CivicTechTide web gateway.
// It serves the browser-facing surface of the civic issue reporting
// platform: authentication, the report directory with map and detail
// views, citizen submissions, engagement, and the admin triage board.
//
// Architecture:
//   - Report data lives in the CivicTide backend API; the gateway holds none
//   - Sessions are kept in Redis, keyed by an opaque cookie
//   - Page handlers return JSON view models, one per browser route
//   - Geocoding goes through a debounced Nominatim client
//
// The gateway acts as the platform's front door: it owns presentation
// state (filters, grouping, session) but never the reports themselves.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/civictide/civicweb/internal/backend"
	"github.com/civictide/civicweb/internal/config"
	"github.com/civictide/civicweb/internal/directory"
	"github.com/civictide/civicweb/internal/geocode"
	"github.com/civictide/civicweb/internal/handlers"
	"github.com/civictide/civicweb/internal/metrics"
	"github.com/civictide/civicweb/internal/middleware"
	"github.com/civictide/civicweb/internal/session"
	"github.com/civictide/civicweb/internal/triage"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Initialize structured logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	sugar := logger.Sugar()

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("Failed to load config: %v", err)
	}

	sugar.Infow("Starting CivicTide Web Gateway",
		"port", cfg.Port,
		"env", cfg.Environment,
		"backend_url", cfg.BackendURL,
	)

	// Initialize Redis session store
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		sugar.Fatalf("Failed to parse Redis URL: %v", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	sessions := session.NewStore(session.NewRedisKV(rdb), cfg.SessionTTL, sugar)

	// Initialize collaborators
	api := backend.New(cfg.BackendURL, cfg.BackendTimeout, sugar)
	geocoder := geocode.New(cfg.GeocoderURL, cfg.GeocoderCountry, cfg.GeocoderTimeout, sugar)
	dir := directory.New(api, sugar)
	triageSvc := triage.New(api, sugar)
	mtr := metrics.New("gateway")

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(api, sessions, cfg.Production(), sugar)
	reportsHandler := handlers.NewReportsHandler(api, dir, sessions, sugar)
	adminHandler := handlers.NewAdminHandler(triageSvc, sessions, sugar)
	engagementHandler := handlers.NewEngagementHandler(api, sessions, sugar)
	geocodeHandler := handlers.NewGeocodeHandler(geocoder, sugar)
	healthHandler := handlers.NewHealthHandler(rdb, api, sugar)

	// Build router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(mtr.Middleware())
	r.Use(middleware.WithSession(sessions))

	// Health and metrics
	r.Get("/health", healthHandler.Check)
	r.Get("/health/ready", healthHandler.Ready)
	r.Handle("/metrics", metrics.Handler())

	// Auth surface
	r.Post("/login", authHandler.Login)
	r.Post("/register", authHandler.Register)
	r.Post("/logout", authHandler.Logout)
	r.Get("/api/me", authHandler.Me)

	// Public report directory
	r.Get("/reports", reportsHandler.List)
	r.Get("/reports/{id}", reportsHandler.Detail)
	r.Get("/map", reportsHandler.MapData)
	r.Get("/api/geocode", geocodeHandler.Search)

	// Engagement
	r.Route("/api/reports/{id}", func(r chi.Router) {
		r.Get("/votes", engagementHandler.Votes)
		r.Post("/vote", engagementHandler.ToggleVote)
		r.Get("/comments", engagementHandler.Comments)
		r.Post("/comments", engagementHandler.AddComment)
	})
	r.Delete("/api/comments/{id}", engagementHandler.DeleteComment)

	// Signed-in surface
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth())
		r.Post("/submit", reportsHandler.Submit)
		r.Get("/dashboard", reportsHandler.Dashboard)
	})

	// Admin triage board
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdmin())
		r.Get("/", adminHandler.Overview)
		r.Patch("/reports/{id}/status", adminHandler.Transition)
		r.Delete("/buckets/{status}", adminHandler.ClearBucket)
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sugar.Infof("Gateway listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	sugar.Info("Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		sugar.Fatalf("Forced shutdown: %v", err)
	}

	sugar.Info("Gateway stopped")
}
