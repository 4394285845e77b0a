package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"Users_Cache/internal/cache"
	"Users_Cache/internal/logger"
	"Users_Cache/internal/metrics"
	"Users_Cache/internal/models"
	"Users_Cache/internal/usercache"
)

const storePingTimeout = 2 * time.Second

// Handler contains the admin HTTP handlers
type Handler struct {
	service usercache.Service
	store   cache.Pinger
	metrics *metrics.Prometheus
	logger  logger.Service
	version string
}

// NewHandler creates a new admin handler
func NewHandler(
	service usercache.Service,
	store cache.Pinger,
	prom *metrics.Prometheus,
	logger logger.Service,
	version string,
) *Handler {
	return &Handler{
		service: service,
		store:   store,
		metrics: prom,
		logger:  logger,
		version: version,
	}
}

// writeJSONResponse writes a JSON response with standard headers including X-Request-ID
func (h *Handler) writeJSONResponse(w http.ResponseWriter, r *http.Request, statusCode int, data interface{}) error {
	logEvent := logger.GetLogEvent(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", logEvent.ProcessID)
	w.WriteHeader(statusCode)

	return json.NewEncoder(w).Encode(data)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	response := models.HealthStatus{
		Status:    "healthy",
		Probe:     h.service.Probe(),
		Store:     "up",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	}
	statusCode := http.StatusOK

	pingCtx, cancel := context.WithTimeout(ctx, storePingTimeout)
	defer cancel()
	if err := h.store.Ping(pingCtx); err != nil {
		h.logger.LogError(ctx, logger.OpHealthCheck, "", "Cache store unreachable", err, models.LogSeverityHigh, nil)
		response.Status = "unhealthy"
		response.Store = "down"
		statusCode = http.StatusServiceUnavailable
	}

	if err := h.writeJSONResponse(w, r, statusCode, response); err != nil {
		h.logger.LogError(ctx, logger.OpHealthCheck, "", "Failed to encode health response", err, models.LogSeverityLow, nil)
		return
	}

	h.logger.LogInfo(ctx, logger.OpHealthCheck, "Health check performed", map[string]interface{}{
		"status": response.Status,
	})
}

// Metrics serves the Prometheus registry
func (h *Handler) Metrics() http.Handler {
	return h.metrics.Handler()
}
