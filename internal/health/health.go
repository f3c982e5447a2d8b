package health

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/matrixise/balance-lookup/internal/relay"
	"github.com/matrixise/balance-lookup/internal/scheduler"
)

// Node is the connection side of the session.
type Node interface {
	Connected() bool
	Endpoint() string
	NodeHealth() map[string]bool
}

// RelayCache exposes the cached relay height.
type RelayCache interface {
	Snapshot() relay.Entry
}

// Watch is the periodic account watch, when serve runs one.
type Watch interface {
	Status() scheduler.RunStatus
	ExpectedInterval() time.Duration
}

// Checker performs health checks on application dependencies
type Checker struct {
	node  Node
	relay RelayCache
	now   func() time.Time
	start time.Time

	mu    sync.RWMutex
	watch Watch
}

// NewChecker creates a new health checker
func NewChecker(node Node, relayCache RelayCache) *Checker {
	return &Checker{
		node:  node,
		relay: relayCache,
		now:   time.Now,
		start: time.Now(),
	}
}

// SetWatch attaches the watch scheduler once it exists.
func (c *Checker) SetWatch(w Watch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watch = w
}

// CheckStatus represents the health status of a component
type CheckStatus string

const (
	StatusOK       CheckStatus = "ok"
	StatusDegraded CheckStatus = "degraded"
	StatusError    CheckStatus = "error"
)

// HealthResponse is the JSON response structure
type HealthResponse struct {
	Status    CheckStatus            `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckDetail `json:"checks"`
	Uptime    string                 `json:"uptime,omitempty"`
}

// CheckDetail contains details about a specific health check
type CheckDetail struct {
	Status  CheckStatus `json:"status"`
	Message string      `json:"message,omitempty"`
}

// Check performs all health checks and returns the aggregated status
func (c *Checker) Check() HealthResponse {
	checks := map[string]CheckDetail{
		"node":  c.checkNode(),
		"relay": c.checkRelay(),
	}

	c.mu.RLock()
	watch := c.watch
	c.mu.RUnlock()
	if watch != nil {
		checks["watch"] = c.checkWatch(watch)
	}

	overall := StatusOK
	for _, detail := range checks {
		switch detail.Status {
		case StatusError:
			overall = StatusError
		case StatusDegraded:
			if overall == StatusOK {
				overall = StatusDegraded
			}
		}
	}

	now := c.now()
	return HealthResponse{
		Status:    overall,
		Timestamp: now,
		Checks:    checks,
		Uptime:    now.Sub(c.start).Round(time.Second).String(),
	}
}

func (c *Checker) checkNode() CheckDetail {
	if !c.node.Connected() {
		return CheckDetail{Status: StatusError, Message: "not connected"}
	}

	nodes := c.node.NodeHealth()
	healthy := 0
	for _, ok := range nodes {
		if ok {
			healthy++
		}
	}

	if healthy == len(nodes) {
		return CheckDetail{Status: StatusOK, Message: "connected to " + c.node.Endpoint()}
	}
	if healthy == 0 {
		return CheckDetail{Status: StatusError, Message: "no healthy endpoints"}
	}
	return CheckDetail{
		Status:  StatusDegraded,
		Message: fmt.Sprintf("%d/%d endpoints healthy", healthy, len(nodes)),
	}
}

// checkRelay is informational; an old entry is simply refetched on the
// next vesting lookup.
func (c *Checker) checkRelay() CheckDetail {
	entry := c.relay.Snapshot()
	if !entry.Valid {
		return CheckDetail{Status: StatusOK, Message: "no relay height cached"}
	}

	age := c.now().Sub(entry.CachedAt)
	state := "fresh"
	if age >= relay.TTL {
		state = "expired"
	}
	return CheckDetail{
		Status:  StatusOK,
		Message: fmt.Sprintf("block %d cached %s ago (%s)", entry.BlockNumber, age.Round(time.Second), state),
	}
}

func (c *Checker) checkWatch(w Watch) CheckDetail {
	st := w.Status()

	if st.LastRun.IsZero() {
		return CheckDetail{Status: StatusOK, Message: "watch not yet executed (startup)"}
	}
	if st.LastError != "" {
		return CheckDetail{Status: StatusDegraded, Message: "last execution failed: " + st.LastError}
	}

	// Allow two intervals before calling the watch late.
	since := c.now().Sub(st.LastRun)
	interval := w.ExpectedInterval()
	if since > 2*interval {
		return CheckDetail{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("no execution in %s (expected every %s)", since.Round(time.Second), interval),
		}
	}
	return CheckDetail{
		Status:  StatusOK,
		Message: fmt.Sprintf("last executed %s ago", since.Round(time.Second)),
	}
}

// Handler returns an http.HandlerFunc for the health endpoint
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := c.Check()

		code := http.StatusOK
		if status.Status == StatusError {
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if err := json.NewEncoder(w).Encode(status); err != nil {
			slog.Error("Failed to encode health response", "error", err)
		}
	}
}
