package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/insightloop/dataqual/internal/api/responses"
	"github.com/insightloop/dataqual/pkg/constants"
)

// Pinger is anything with a health probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and version endpoints
type HealthHandler struct {
	startTime    time.Time
	version      string
	environment  string
	dependencies map[string]Pinger
}

// HealthStatus is the health endpoint payload
type HealthStatus struct {
	Status       string                     `json:"status"`
	Timestamp    time.Time                  `json:"timestamp"`
	Version      string                     `json:"version"`
	Environment  string                     `json:"environment"`
	Uptime       string                     `json:"uptime"`
	Goroutines   int                        `json:"goroutines"`
	Dependencies map[string]DependencyCheck `json:"dependencies,omitempty"`
}

// DependencyCheck reports one backend probe result
type DependencyCheck struct {
	Status       string        `json:"status"`
	ResponseTime time.Duration `json:"response_time"`
	Error        string        `json:"error,omitempty"`
}

// NewHealthHandler creates a health handler
func NewHealthHandler(version, environment string) *HealthHandler {
	if version == "" {
		version = constants.AppVersion
	}
	return &HealthHandler{
		startTime:    time.Now(),
		version:      version,
		environment:  environment,
		dependencies: make(map[string]Pinger),
	}
}

// RegisterDependency adds a backend to the health probe set
func (h *HealthHandler) RegisterDependency(name string, p Pinger) {
	h.dependencies[name] = p
}

// GetHealth handles GET /health
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	status := &HealthStatus{
		Status:      "healthy",
		Timestamp:   time.Now().UTC(),
		Version:     h.version,
		Environment: h.environment,
		Uptime:      time.Since(h.startTime).Round(time.Second).String(),
		Goroutines:  runtime.NumGoroutine(),
	}

	if len(h.dependencies) > 0 {
		status.Dependencies = make(map[string]DependencyCheck, len(h.dependencies))
		for name, p := range h.dependencies {
			check := DependencyCheck{Status: "healthy"}
			start := time.Now()
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			if err := p.Ping(ctx); err != nil {
				check.Status = "unhealthy"
				check.Error = err.Error()
				status.Status = "degraded"
			}
			cancel()
			check.ResponseTime = time.Since(start)
			status.Dependencies[name] = check
		}
	}

	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	responses.WriteJSON(w, code, status)
}

// GetVersion handles GET /version
func (h *HealthHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	responses.WriteJSON(w, http.StatusOK, map[string]string{
		"name":    constants.AppName,
		"version": h.version,
	})
}
