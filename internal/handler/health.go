package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/aryan0dhankhar/leadintake/pkg/cache"
)

// probeTTL is how long a probe result is reused before the dependency is asked again
const probeTTL = 2 * time.Second

type probeResult struct {
	err error
}

// Checker reports whether a dependency is reachable
type Checker func(ctx context.Context) error

// HealthHandler handles health check endpoints
type HealthHandler struct {
	checks  map[string]Checker
	results *cache.Cache[probeResult]
	logger  *slog.Logger
}

// NewHealthHandler creates a new health handler. checks maps a dependency
// name such as "redis" or "postgres" to its probe.
func NewHealthHandler(checks map[string]Checker, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if checks == nil {
		checks = map[string]Checker{}
	}

	return &HealthHandler{
		checks:  checks,
		results: cache.New[probeResult](),
		logger:  logger,
	}
}

// HealthResponse represents the health status response
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadinessResponse represents the readiness check response
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Health handles GET /healthz - Simple liveness check
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
}

// Ready handles GET /readyz
// Returns 200 only if every configured dependency answers
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(map[string]string, len(names))
	allHealthy := true
	for _, name := range names {
		check := h.checks[name]
		res := h.results.GetOrLoad("probe:"+name, probeTTL, func() probeResult {
			return probeResult{err: check(ctx)}
		})
		if err := res.err; err != nil {
			checks[name] = "error: " + err.Error()
			allHealthy = false
			continue
		}
		checks[name] = "ok"
	}

	status := "ready"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ReadinessResponse{
		Status: status,
		Checks: checks,
	})

	attrs := []any{slog.String("status", status)}
	for _, name := range names {
		attrs = append(attrs, slog.String(name, checks[name]))
	}
	h.logger.Debug("readiness check", attrs...)
}
