package server

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/teemow/agenda/internal/failure"
)

// Health status constants for health check responses.
const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
	healthStatusNoTools      = "no tools registered"
)

// HealthChecker serves /healthz, /readyz and /healthz/detailed. Besides the
// readiness flag it keeps counters of the questions answered so far.
type HealthChecker struct {
	ready     atomic.Bool
	sc        *ServerContext
	version   string
	startTime time.Time

	answered    atomic.Int64
	failed      atomic.Int64
	lastFailure atomic.Pointer[FailureSnapshot]
}

// FailureSnapshot describes the most recent failed question.
type FailureSnapshot struct {
	Kind string    `json:"kind"`
	At   time.Time `json:"at"`
}

// NewHealthChecker creates a HealthChecker that starts out ready.
func NewHealthChecker(sc *ServerContext, version string) *HealthChecker {
	h := &HealthChecker{
		sc:        sc,
		version:   version,
		startTime: time.Now(),
	}
	h.ready.Store(true)
	return h
}

// SetReady sets the readiness state of the server.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady returns whether the server is ready to receive traffic.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// RecordQuestion counts one answered question; err is the failure, if any.
func (h *HealthChecker) RecordQuestion(err error) {
	if err == nil {
		h.answered.Add(1)
		return
	}
	h.failed.Add(1)
	h.lastFailure.Store(&FailureSnapshot{Kind: string(failure.KindOf(err)), At: time.Now()})
}

// HealthResponse represents the JSON response for health endpoints.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse adds what the bridge has been doing to the checks.
type DetailedHealthResponse struct {
	Status          string            `json:"status"`
	Version         string            `json:"version,omitempty"`
	Uptime          string            `json:"uptime"`
	Checks          map[string]string `json:"checks"`
	Tools           []string          `json:"tools,omitempty"`
	Instrumentation bool              `json:"instrumentation"`
	Answered        int64             `json:"answered"`
	Failed          int64             `json:"failed"`
	LastFailure     *FailureSnapshot  `json:"last_failure,omitempty"`
}

// checks runs the readiness checks. The overall status is the first
// failing check, in the order ready, shutdown, tools.
func (h *HealthChecker) checks() (map[string]string, string) {
	checks := map[string]string{
		"ready":    healthStatusOK,
		"shutdown": healthStatusOK,
	}
	status := healthStatusOK

	if !h.ready.Load() {
		checks["ready"] = healthStatusNotReady
		status = healthStatusNotReady
	}
	if h.sc != nil && h.sc.IsShutdown() {
		checks["shutdown"] = healthStatusShuttingDown
		if status == healthStatusOK {
			status = healthStatusShuttingDown
		}
	}
	// without a registry the agent runs tool-less, which is allowed
	if h.sc != nil && h.sc.Tools() != nil {
		checks["tools"] = healthStatusOK
		if len(h.sc.Tools().Tools()) == 0 {
			checks["tools"] = healthStatusNoTools
			if status == healthStatusOK {
				status = healthStatusNotReady
			}
		}
	}
	return checks, status
}

// LivenessHandler answers /healthz. It only says the process is up.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler answers /readyz with 503 while any check fails.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		checks, status := h.checks()
		resp := HealthResponse{Status: status, Checks: checks}
		if status != healthStatusOK {
			// readiness callers only distinguish ready from not ready
			resp.Status = healthStatusNotReady
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})
}

// DetailedHealthHandler answers /healthz/detailed.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		checks, status := h.checks()
		resp := DetailedHealthResponse{
			Status:      status,
			Version:     h.version,
			Uptime:      time.Since(h.startTime).Truncate(time.Second).String(),
			Checks:      checks,
			Answered:    h.answered.Load(),
			Failed:      h.failed.Load(),
			LastFailure: h.lastFailure.Load(),
		}
		if sc := h.sc; sc != nil {
			if sc.Tools() != nil {
				for _, t := range sc.Tools().Tools() {
					resp.Tools = append(resp.Tools, t.Name())
				}
			}
			resp.Instrumentation = sc.InstrumentationProvider() != nil && sc.InstrumentationProvider().Enabled()
		}

		code := http.StatusOK
		if status != healthStatusOK {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	})
}

// RegisterHealthEndpoints registers health check endpoints on the given mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/healthz/detailed", h.DetailedHealthHandler())
}
