package handlers

import (
	"net/http"
	"time"

	"github.com/civictide/civicweb/internal/backend"
	"github.com/civictide/civicweb/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var startTime = time.Now()

// HealthHandler provides health check endpoints
type HealthHandler struct {
	redis   *redis.Client
	backend *backend.Client
	logger  *zap.SugaredLogger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(rdb *redis.Client, client *backend.Client, logger *zap.SugaredLogger) *HealthHandler {
	return &HealthHandler{redis: rdb, backend: client, logger: logger}
}

// Check handles GET /health (liveness probe)
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.HealthStatus{
		Status:  "ok",
		Version: "1.3.0",
		Uptime:  time.Since(startTime).String(),
	})
}

// Ready handles GET /health/ready (readiness probe)
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	sessionStatus := "connected"
	if err := h.redis.Ping(r.Context()).Err(); err != nil {
		h.logger.Warnw("session store unreachable", "error", err)
		sessionStatus = "disconnected"
	}

	backendStatus := "connected"
	if err := h.backend.Health(r.Context()); err != nil {
		h.logger.Warnw("backend unreachable", "error", err)
		backendStatus = "disconnected"
	}

	status := models.HealthStatus{
		Status:  "ready",
		Version: "1.3.0",
		Uptime:  time.Since(startTime).String(),
		Session: sessionStatus,
		Backend: backendStatus,
	}
	if sessionStatus != "connected" || backendStatus != "connected" {
		status.Status = "not ready"
		respondJSON(w, http.StatusServiceUnavailable, status)
		return
	}

	respondJSON(w, http.StatusOK, status)
}
