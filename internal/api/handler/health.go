package handler

import (
	"net/http"
	"time"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	engine string
}

// NewHealthHandler creates a new health handler reporting the active engine.
func NewHealthHandler(engine string) *HealthHandler {
	return &HealthHandler{engine: engine}
}

// HealthResponse is the JSON response for health checks.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Engine    string `json:"engine"`
}

// Live handles GET /health - liveness probe.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "OK",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Engine:    h.engine,
	})
}
