package resilience

import (
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Breaker is the read side of a gobreaker circuit breaker.
type Breaker interface {
	Name() string
	State() gobreaker.State
	Counts() gobreaker.Counts
}

// Health is the status of one registered dependency.
type Health struct {
	Name          string     `json:"name"`
	State         string     `json:"state"`
	Requests      uint32     `json:"requests"`
	Failures      uint32     `json:"total_failures"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	LastFailureAt *time.Time `json:"last_failure_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
}

// Healthy reports whether the breaker is closed.
func (h Health) Healthy() bool {
	return h.State == gobreaker.StateClosed.String()
}

// Registry tracks the breakers of a process for the ops endpoints.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	breaker       Breaker
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Register adds a breaker under its name.
func (r *Registry) Register(b Breaker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[b.Name()] = &entry{breaker: b}
}

// RecordSuccess records a successful call.
func (r *Registry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[name]; ok {
		now := time.Now()
		e.lastSuccessAt = &now
	}
}

// RecordFailure records a failed call.
func (r *Registry) RecordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[name]; ok {
		now := time.Now()
		e.lastFailureAt = &now
		if err != nil {
			e.lastError = err.Error()
		}
	}
}

// All returns the health of every registered breaker, sorted by name.
func (r *Registry) All() []Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Health, 0, len(r.entries))
	for name, e := range r.entries {
		counts := e.breaker.Counts()
		out = append(out, Health{
			Name:          name,
			State:         e.breaker.State().String(),
			Requests:      counts.Requests,
			Failures:      counts.TotalFailures,
			LastSuccessAt: e.lastSuccessAt,
			LastFailureAt: e.lastFailureAt,
			LastError:     e.lastError,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
