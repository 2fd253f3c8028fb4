package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// GeneratorStatus reports whether the hosted text generator is configured.
type GeneratorStatus interface {
	Available() bool
}

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	generator GeneratorStatus
	mode      string
	startedAt time.Time
	logger    *slog.Logger
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(generator GeneratorStatus, mode string, startedAt time.Time, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		generator: generator,
		mode:      mode,
		startedAt: startedAt,
		logger:    logger,
	}
}

// HealthCheck reports liveness and whether assistant replies are generated
// or fall back to fixed text.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	generator := "missing"
	if h.generator != nil && h.generator.Available() {
		generator = "active"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"mode":           h.mode,
		"generator":      generator,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}
