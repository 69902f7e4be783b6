package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger is a dependency whose reachability is reported by the health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves GET /api/health.
type HealthHandler struct {
	deps map[string]Pinger
	now  func() time.Time
}

// NewHealthHandler creates a HealthHandler. deps may be nil.
func NewHealthHandler(deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{deps: deps, now: time.Now}
}

// HealthCheck reports "ok", or "degraded" with the failing dependencies. It
// always answers 200 so that a flaky cache does not restart the service.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":    "ok",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	failing := map[string]string{}
	for name, p := range h.deps {
		if err := p.Ping(ctx); err != nil {
			failing[name] = err.Error()
		}
	}
	if len(failing) > 0 {
		resp["status"] = "degraded"
		resp["failing"] = failing
	}
	writeJSON(w, http.StatusOK, resp)
}
