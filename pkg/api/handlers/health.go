package handlers

import (
	"net/http"

	"github.com/iskaald/icecold/pkg/service"
)

// Readiness reports whether the startup pass has completed.
type Readiness interface {
	Ready() bool
}

// HealthHandler handles health check endpoints.
//
// Health endpoints are unauthenticated and provide:
//   - Liveness probe: Is the process running?
//   - Readiness probe: Has startup completed and is teardown not yet underway?
type HealthHandler struct {
	readiness Readiness
	registry  *service.Registry
}

// NewHealthHandler creates a new health handler.
//
// Either argument may be nil, in which case the readiness probe reports
// unhealthy.
func NewHealthHandler(readiness Readiness, registry *service.Registry) *HealthHandler {
	return &HealthHandler{readiness: readiness, registry: registry}
}

// Liveness handles GET /health - simple liveness probe.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"service": "icecold",
	}))
}

// Readiness handles GET /health/ready - readiness probe.
//
// Returns 503 Service Unavailable until every service has been visited by the
// startup pass, and again once teardown begins.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.readiness == nil || h.registry == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("runtime not initialized"))
		return
	}
	if !h.readiness.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("startup not complete"))
		return
	}

	counts := make(map[string]int)
	for _, info := range h.registry.Snapshot() {
		counts[info.State]++
	}

	writeJSON(w, http.StatusOK, healthyResponse(map[string]interface{}{
		"services": h.registry.Len(),
		"states":   counts,
	}))
}
