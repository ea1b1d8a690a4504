package handler

import (
	"net/http"

	"github.com/finbot-ai/agent-platform/internal/mongodb"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	mongo *mongodb.Client
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(mongo *mongodb.Client) *HealthHandler {
	return &HealthHandler{
		mongo: mongo,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "agent-platform",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.mongo == nil || !h.mongo.IsConnected(r.Context()) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "MongoDB not connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
