// Package health aggregates named subsystem probes for readiness reporting.
package health

import (
	"context"
	"sync"
	"time"
)

// checkTimeout bounds a single probe so one stuck dependency cannot
// hold the readiness endpoint open.
const checkTimeout = 2 * time.Second

// Status is the outcome of a single subsystem probe.
type Status struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

// Checker probes one subsystem. A nil return means healthy.
type Checker func(ctx context.Context) error

// Registry holds named probes and runs them on demand in registration order.
type Registry struct {
	mu     sync.RWMutex
	names  []string
	checks map[string]Checker
}

// NewRegistry creates an empty probe registry.
func NewRegistry() *Registry {
	return &Registry{checks: make(map[string]Checker)}
}

// Register adds a named probe. Registering the same name twice replaces
// the earlier probe.
func (r *Registry) Register(name string, check Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.checks[name]; !exists {
		r.names = append(r.names, name)
	}
	r.checks[name] = check
}

// CheckAll runs every probe and returns the aggregate health plus the
// individual results. An empty registry is healthy.
func (r *Registry) CheckAll(ctx context.Context) (bool, []Status) {
	r.mu.RLock()
	names := make([]string, len(r.names))
	copy(names, r.names)
	checks := make(map[string]Checker, len(r.checks))
	for name, check := range r.checks {
		checks[name] = check
	}
	r.mu.RUnlock()

	healthy := true
	statuses := make([]Status, 0, len(names))
	for _, name := range names {
		status := run(ctx, name, checks[name])
		if !status.Healthy {
			healthy = false
		}
		statuses = append(statuses, status)
	}
	return healthy, statuses
}

func run(ctx context.Context, name string, check Checker) Status {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if err := check(ctx); err != nil {
		return Status{Name: name, Healthy: false, Detail: err.Error()}
	}
	return Status{Name: name, Healthy: true}
}
