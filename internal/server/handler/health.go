package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger is implemented by anything the readiness check depends on: the
// Postgres ledger mirror, the Redis observation cache, etc.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness endpoints.
type HealthHandler struct {
	logger *slog.Logger
	deps   map[string]Pinger
}

// NewHealthHandler creates a HealthHandler with the provided logger. deps
// names each dependency the readiness check pings before reporting ready.
func NewHealthHandler(logger *slog.Logger, deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{logger: logger, deps: deps}
}

// HealthCheck responds with a simple JSON status indicating the process is
// alive. It never checks dependencies, so a degraded database does not
// cause the orchestrator to kill a process that could otherwise recover.
// GET /healthz
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Readiness pings every configured dependency and reports 200 only if all
// of them respond within the request's deadline.
// GET /readyz
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	failures := map[string]string{}
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			failures[name] = err.Error()
		}
	}

	if len(failures) > 0 {
		h.logger.WarnContext(ctx, "readiness check failed", slog.Any("failures", failures))
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not ready",
			"errors": failures,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
