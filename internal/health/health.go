// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package health provides the liveness and readiness probes of the daemon's
// admin listener.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/ManuGH/playerbridge/internal/log"
)

// Status represents the overall health/readiness status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult represents the result of a component health check
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse represents the full health check response
type HealthResponse struct {
	Status    Status                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Uptime    int64                  `json:"uptime_seconds"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// ReadinessResponse represents the readiness check response
type ReadinessResponse struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker defines the interface for health checks
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager manages health and readiness checks
type Manager struct {
	version string
	started time.Time

	mu       sync.RWMutex
	checkers []Checker
}

// NewManager creates a new health check manager
func NewManager(version string) *Manager {
	return &Manager{
		version:  version,
		started:  time.Now(),
		checkers: make([]Checker, 0),
	}
}

// RegisterChecker adds a health checker to the manager
func (m *Manager) RegisterChecker(checker Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, checker)
}

func (m *Manager) snapshot() []Checker {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Checker(nil), m.checkers...)
}

// run executes all checks and folds them into an overall status.
func (m *Manager) run(ctx context.Context) (map[string]CheckResult, Status) {
	checkers := m.snapshot()
	if len(checkers) == 0 {
		return nil, StatusHealthy
	}
	results := make(map[string]CheckResult, len(checkers))
	overall := StatusHealthy
	for _, checker := range checkers {
		result := checker.Check(ctx)
		results[checker.Name()] = result
		switch result.Status {
		case StatusUnhealthy:
			overall = StatusUnhealthy
		case StatusDegraded:
			if overall == StatusHealthy {
				overall = StatusDegraded
			}
		}
	}
	return results, overall
}

// Health performs a health check (liveness probe). The process is alive
// regardless of component state; components are reported only when verbose.
func (m *Manager) Health(ctx context.Context, verbose bool) HealthResponse {
	resp := HealthResponse{
		Status:    StatusHealthy,
		Version:   m.version,
		Uptime:    int64(time.Since(m.started).Seconds()),
		Timestamp: time.Now(),
	}
	if verbose {
		resp.Checks, resp.Status = m.run(ctx)
	}
	return resp
}

// Ready performs a readiness check. Any unhealthy component makes the
// daemon not ready; degraded components do not.
func (m *Manager) Ready(ctx context.Context, _ bool) ReadinessResponse {
	checks, status := m.run(ctx)
	return ReadinessResponse{
		Ready:     status != StatusUnhealthy,
		Status:    status,
		Checks:    checks,
		Timestamp: time.Now(),
	}
}

// ServeHealth handles HTTP health check requests
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	logger := log.WithContext(r.Context(), log.WithComponent("health"))
	verbose := r.URL.Query().Get("verbose") == "true"

	resp := m.Health(r.Context(), verbose)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK) // Always 200 for liveness

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "health.encode_error").Msg("failed to encode health response")
	}

	logger.Debug().
		Str(log.FieldEvent, "health.checked").
		Str("status", string(resp.Status)).
		Bool("verbose", verbose).
		Msg("health check performed")
}

// ServeReady handles HTTP readiness check requests
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	logger := log.WithContext(r.Context(), log.WithComponent("readiness"))
	verbose := r.URL.Query().Get("verbose") == "true"

	resp := m.Ready(r.Context(), verbose)

	w.Header().Set("Content-Type", "application/json")
	if resp.Ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "readiness.encode_error").Msg("failed to encode readiness response")
	}

	logger.Debug().
		Str(log.FieldEvent, "readiness.checked").
		Str("status", string(resp.Status)).
		Bool("ready", resp.Ready).
		Msg("readiness check performed")
}

// ReadyChecker reports unhealthy until ready returns true.
type ReadyChecker struct {
	name    string
	message string
	ready   func() bool
}

// NewReadyChecker creates a checker backed by a readiness predicate.
// message describes the not-ready state.
func NewReadyChecker(name, message string, ready func() bool) *ReadyChecker {
	return &ReadyChecker{name: name, message: message, ready: ready}
}

func (c *ReadyChecker) Name() string { return c.name }

func (c *ReadyChecker) Check(context.Context) CheckResult {
	if c.ready() {
		return CheckResult{Status: StatusHealthy}
	}
	return CheckResult{Status: StatusUnhealthy, Message: c.message}
}

// SocketChecker checks that a unix socket exists at path.
type SocketChecker struct {
	name string
	path string
}

// NewSocketChecker creates a checker for socket existence
func NewSocketChecker(name, path string) *SocketChecker {
	return &SocketChecker{
		name: name,
		path: path,
	}
}

func (c *SocketChecker) Name() string {
	return c.name
}

func (c *SocketChecker) Check(_ context.Context) CheckResult {
	if c.path == "" {
		return CheckResult{
			Status:  StatusHealthy,
			Message: "not configured (optional)",
		}
	}

	info, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return CheckResult{
				Status:  StatusUnhealthy,
				Error:   "socket not found",
				Message: c.path,
			}
		}
		return CheckResult{
			Status: StatusUnhealthy,
			Error:  err.Error(),
		}
	}

	if info.Mode()&os.ModeSocket == 0 {
		return CheckResult{
			Status:  StatusUnhealthy,
			Error:   "not a socket",
			Message: c.path,
		}
	}

	return CheckResult{
		Status:  StatusHealthy,
		Message: "listening",
	}
}
