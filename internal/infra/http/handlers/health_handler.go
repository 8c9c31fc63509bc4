package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
)

// CheckFunc reports whether one dependency is reachable.
type CheckFunc func(ctx context.Context) error

type HealthHandler struct {
	Checks    map[string]CheckFunc
	Version   string
	Clock     clock.Clock
	StartTime time.Time
}

type HealthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Uptime       string            `json:"uptime"`
	Dependencies map[string]string `json:"dependencies"`
}

// NewHealthHandler builds the handler. A nil check marks the dependency
// as not configured.
func NewHealthHandler(version string, clk clock.Clock, checks map[string]CheckFunc) *HealthHandler {
	return &HealthHandler{
		Checks:    checks,
		Version:   version,
		Clock:     clk,
		StartTime: clk.Now(),
	}
}

func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	deps := make(map[string]string, len(h.Checks))
	status := "healthy"
	for name, check := range h.Checks {
		if check == nil {
			deps[name] = "not configured"
			continue
		}
		if err := check(ctx); err != nil {
			deps[name] = fmt.Sprintf("unhealthy: %v", err)
			status = "degraded"
			continue
		}
		deps[name] = "healthy"
	}

	code := http.StatusOK
	if status == "degraded" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, HealthResponse{
		Status:       status,
		Version:      h.Version,
		Uptime:       h.Clock.Since(h.StartTime).Round(time.Second).String(),
		Dependencies: deps,
	})
}
