package platform

import (
	"maps"
	"slices"
	"sync"
)

// ViewHost is the host view system seen from the render thread.
type ViewHost interface {
	// UpdateView applies properties to a view synchronously.
	UpdateView(tag int64, props map[string]any) error
	// UpdateLayout applies layout-affecting properties. The engine batches
	// these and flushes them after each event and frame.
	UpdateLayout(tag int64, props map[string]any) error
	// ViewProp reads a property back from a view.
	ViewProp(tag int64, name string) (any, error)
}

// MemoryHost is a ViewHost that keeps view properties in memory. It backs
// tests and the CLI's simulated views. Safe for concurrent use.
type MemoryHost struct {
	mu      sync.RWMutex
	views   map[int64]map[string]any
	updates int
	layouts int
}

// NewMemoryHost creates a host with no views.
func NewMemoryHost() *MemoryHost {
	return &MemoryHost{views: make(map[int64]map[string]any)}
}

// AddView registers a view with its initial properties.
func (h *MemoryHost) AddView(tag int64, props map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v := make(map[string]any, len(props))
	maps.Copy(v, props)
	h.views[tag] = v
}

// UpdateView implements ViewHost.
func (h *MemoryHost) UpdateView(tag int64, props map[string]any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.views[tag]
	if !ok {
		return ErrViewNotFound
	}
	maps.Copy(v, props)
	h.updates++
	return nil
}

// UpdateLayout implements ViewHost.
func (h *MemoryHost) UpdateLayout(tag int64, props map[string]any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.views[tag]
	if !ok {
		return ErrViewNotFound
	}
	maps.Copy(v, props)
	h.layouts++
	return nil
}

// ViewProp implements ViewHost.
func (h *MemoryHost) ViewProp(tag int64, name string) (any, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	v, ok := h.views[tag]
	if !ok {
		return nil, ErrViewNotFound
	}
	p, ok := v[name]
	if !ok {
		return nil, ErrPropNotFound
	}
	return p, nil
}

// Props returns a copy of a view's properties, or nil for unknown views.
func (h *MemoryHost) Props(tag int64) map[string]any {
	h.mu.RLock()
	defer h.mu.RUnlock()
	v, ok := h.views[tag]
	if !ok {
		return nil
	}
	return maps.Clone(v)
}

// Tags returns the registered view tags in ascending order.
func (h *MemoryHost) Tags() []int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Sorted(maps.Keys(h.views))
}

// Counts returns how many view and layout updates were applied.
func (h *MemoryHost) Counts() (updates, layouts int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.updates, h.layouts
}
