// Package health exposes liveness and readiness probes for the daemon's
// admin HTTP surface.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Status is the health state of a component.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult is the outcome of one probe.
type CheckResult struct {
	Status      Status        `json:"status"`
	Error       string        `json:"error,omitempty"`
	LastChecked time.Time     `json:"last_checked"`
	Duration    time.Duration `json:"duration_ns"`
}

// Check probes one component. A nil error means healthy.
type Check func(ctx context.Context) error

type component struct {
	check    Check
	critical bool
}

// DefaultCheckTimeout bounds each individual probe.
const DefaultCheckTimeout = 5 * time.Second

// Checker aggregates component probes into an overall status.
type Checker struct {
	mu         sync.RWMutex
	components map[string]component
	results    map[string]CheckResult
	startTime  time.Time
	ready      bool
}

// NewChecker creates an empty Checker. It starts not ready.
func NewChecker() *Checker {
	return &Checker{
		components: make(map[string]component),
		results:    make(map[string]CheckResult),
		startTime:  time.Now(),
	}
}

// Register adds a named probe. Critical probe failure makes the overall
// status unhealthy; non-critical failure only degrades it.
func (c *Checker) Register(name string, critical bool, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.components[name] = component{check: check, critical: critical}
}

// SetReady flips the readiness state.
func (c *Checker) SetReady(ready bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = ready
}

// IsReady reports the readiness state.
func (c *Checker) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// Run executes every registered probe and records the results.
func (c *Checker) Run(ctx context.Context) map[string]CheckResult {
	c.mu.RLock()
	names := make([]string, 0, len(c.components))
	for name := range c.components {
		names = append(names, name)
	}
	c.mu.RUnlock()

	results := make(map[string]CheckResult, len(names))
	for _, name := range names {
		results[name] = c.runOne(ctx, name)
	}
	return results
}

func (c *Checker) runOne(ctx context.Context, name string) CheckResult {
	c.mu.RLock()
	comp, ok := c.components[name]
	c.mu.RUnlock()
	if !ok {
		return CheckResult{Status: StatusUnhealthy, Error: "unknown component"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, DefaultCheckTimeout)
	defer cancel()

	start := time.Now()
	result := CheckResult{Status: StatusHealthy, LastChecked: start}
	if err := comp.check(checkCtx); err != nil {
		result.Status = StatusUnhealthy
		result.Error = err.Error()
	}
	result.Duration = time.Since(start)

	c.mu.Lock()
	c.results[name] = result
	c.mu.Unlock()
	return result
}

// OverallStatus aggregates the most recent results.
func (c *Checker) OverallStatus() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	degraded := false
	for name, result := range c.results {
		if result.Status == StatusHealthy {
			continue
		}
		if c.components[name].critical {
			return StatusUnhealthy
		}
		degraded = true
	}
	if degraded {
		return StatusDegraded
	}
	return StatusHealthy
}

// Response is the payload for the health endpoint.
type Response struct {
	Status     Status                 `json:"status"`
	Ready      bool                   `json:"ready"`
	Uptime     string                 `json:"uptime"`
	Components map[string]CheckResult `json:"components,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// Handler serves the full health report, running all probes.
func (c *Checker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		components := c.Run(r.Context())
		resp := Response{
			Status:     c.OverallStatus(),
			Ready:      c.IsReady(),
			Uptime:     time.Since(c.startTime).String(),
			Components: components,
			Timestamp:  time.Now(),
		}
		w.Header().Set("Content-Type", "application/json")
		if resp.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(resp)
	})
}

// ReadinessHandler serves a readiness probe.
func (c *Checker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !c.IsReady() {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]any{"ready": false})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"ready": true})
	})
}

// LivenessHandler serves a liveness probe. It succeeds whenever the process
// can answer at all.
func (c *Checker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "alive",
			"timestamp": time.Now(),
		})
	})
}
