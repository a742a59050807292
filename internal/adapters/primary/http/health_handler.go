package http

import (
	"context"
	"net/http"
	"runtime"
	"time"
)

const healthCheckTimeout = 5 * time.Second

// HealthChecker is the slice of the database pool the probes need.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes plus a detailed
// health report for operators.
type HealthHandler struct {
	db      HealthChecker
	started time.Time
	version string
}

func NewHealthHandler(db HealthChecker, version string) *HealthHandler {
	return &HealthHandler{
		db:      db,
		started: time.Now(),
		version: version,
	}
}

// HealthStatus is the probe response body.
type HealthStatus struct {
	Status     string           `json:"status"`
	Timestamp  string           `json:"timestamp"`
	Version    string           `json:"version,omitempty"`
	Uptime     string           `json:"uptime,omitempty"`
	Goroutines int              `json:"goroutines,omitempty"`
	Checks     map[string]Check `json:"checks,omitempty"`
}

// Check is one dependency's probe result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// HandleLiveness reports that the process is up. It must not touch
// dependencies: a dead database should not get the pod restarted.
func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleReadiness reports whether the service can take traffic, which
// requires a reachable database.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	dbCheck := h.checkDatabase(ctx)

	status, code := "healthy", http.StatusOK
	if dbCheck.Status != "healthy" {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	WriteJSON(w, code, HealthStatus{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Checks:    map[string]Check{"database": dbCheck},
	})
}

// HandleHealth is the operator-facing report: readiness plus runtime
// stats.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	dbCheck := h.checkDatabase(ctx)

	status, code := "healthy", http.StatusOK
	if dbCheck.Status != "healthy" {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	WriteJSON(w, code, HealthStatus{
		Status:     status,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Version:    h.version,
		Uptime:     time.Since(h.started).Round(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
		Checks:     map[string]Check{"database": dbCheck},
	})
}

func (h *HealthHandler) checkDatabase(ctx context.Context) Check {
	if h.db == nil {
		return Check{Status: "unhealthy", Message: "database not configured"}
	}

	start := time.Now()
	err := h.db.Ping(ctx)
	latency := time.Since(start).String()

	if err != nil {
		return Check{Status: "unhealthy", Message: err.Error(), Latency: latency}
	}
	return Check{Status: "healthy", Latency: latency}
}
