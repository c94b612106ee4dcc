package tts

import (
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Registry is the process-wide catalog of synthesis backends. It is
// read-mostly: List runs on every request, state changes only when a backend
// fails or recovers.
type Registry struct {
	logger *log.Logger

	mu       sync.RWMutex
	backends map[string]*registered
	order    []*registered
}

// registered pairs a descriptor with its registration order for tie-breaks.
type registered struct {
	desc  Descriptor
	index int
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{
		logger:   logger,
		backends: make(map[string]*registered),
	}
}

// Register adds a backend descriptor. The descriptor starts unloaded
// regardless of the state passed in.
func (r *Registry) Register(desc Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.backends[desc.ID]; ok {
		return ErrDuplicateBackend
	}
	desc.State = StateUnloaded
	desc.RetryAt = time.Time{}
	reg := &registered{desc: desc, index: len(r.order)}
	r.backends[desc.ID] = reg
	r.order = append(r.order, reg)

	// Priority order is fixed at registration time; failures only hide
	// entries temporarily, they never reorder the chain.
	sort.SliceStable(r.order, func(i, j int) bool {
		if r.order[i].desc.Priority != r.order[j].desc.Priority {
			return r.order[i].desc.Priority < r.order[j].desc.Priority
		}
		return r.order[i].index < r.order[j].index
	})

	r.logger.Debug("backend registered", "id", desc.ID, "priority", desc.Priority)
	return nil
}

// List returns the backends in priority order, excluding those still inside
// their cool-down window. A backend whose window has elapsed is reinstated
// automatically and will be retried on its next turn in the chain.
func (r *Registry) List() []Descriptor {
	now := time.Now()
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.order))
	for _, reg := range r.order {
		if reg.desc.State == StateFailed && now.Before(reg.desc.RetryAt) {
			continue
		}
		out = append(out, reg.desc)
	}
	return out
}

// Get returns the descriptor for id regardless of its cool-down state.
func (r *Registry) Get(id string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.backends[id]
	if !ok {
		return Descriptor{}, false
	}
	return reg.desc, true
}

// Describe returns the catalog entry for id, including backends currently
// inside their cool-down window.
func (r *Registry) Describe(id string) (BackendInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.backends[id]
	if !ok {
		return BackendInfo{}, false
	}
	return describe(reg.desc), true
}

// DescribeAll returns the catalog entries for every registered backend in
// priority order, regardless of health.
func (r *Registry) DescribeAll() []BackendInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]BackendInfo, 0, len(r.order))
	for _, reg := range r.order {
		out = append(out, describe(reg.desc))
	}
	return out
}

func describe(desc Descriptor) BackendInfo {
	return BackendInfo{
		ID:            desc.ID,
		Name:          desc.Capabilities.Name,
		QualityTier:   desc.Capabilities.QualityTier,
		Offline:       !desc.Capabilities.RequiresNetwork,
		SampleRate:    desc.Capabilities.SampleRate,
		Priority:      desc.Priority,
		MaxTextLength: desc.MaxTextLength,
		State:         desc.State,
		RetryAt:       desc.RetryAt,
	}
}

// Len returns the number of registered backends.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// MarkLoading records that a backend's first use is in progress.
func (r *Registry) MarkLoading(id string) {
	r.setState(id, StateLoading, 0)
}

// MarkReady records a successful use, clearing any failure state.
func (r *Registry) MarkReady(id string) {
	r.setState(id, StateReady, 0)
}

// MarkUnloaded puts a backend back into the unloaded pool. Used when a first
// use fails for a per-request reason: the backend is not broken, so it must
// not sit in the loading state forever.
func (r *Registry) MarkUnloaded(id string) {
	r.setState(id, StateUnloaded, 0)
}

// MarkFailed records a systemic failure and starts the cool-down window
// during which List excludes the backend.
func (r *Registry) MarkFailed(id string, coolDown time.Duration) {
	r.setState(id, StateFailed, coolDown)
}

func (r *Registry) setState(id string, state LoadState, coolDown time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.backends[id]
	if !ok {
		return
	}
	prev := reg.desc.State
	reg.desc.State = state
	if state == StateFailed {
		reg.desc.RetryAt = time.Now().Add(coolDown)
		r.logger.Warn("backend entering cool-down",
			"id", id,
			"coolDown", coolDown,
			"retryAt", reg.desc.RetryAt.Format(time.RFC3339))
	} else {
		reg.desc.RetryAt = time.Time{}
		if prev == StateFailed && state == StateReady {
			r.logger.Info("backend recovered", "id", id)
		}
	}
}
