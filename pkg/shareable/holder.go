package shareable

import "sync"

// SyncHolder is a snapshot slot that both runtimes read and write
// synchronously. Unlike a reactive cell it has no subscribers and never
// dirties a mapper; it exists for data that the control runtime must see
// immediately after the render runtime stores it.
type SyncHolder struct {
	mu    sync.RWMutex
	value *Snapshot
}

// NewSyncHolder returns a holder containing initial.
func NewSyncHolder(initial *Snapshot) *SyncHolder {
	return &SyncHolder{value: initial}
}

// Get materializes the current value into rt.
func (h *SyncHolder) Get(rt Runtime) any {
	h.mu.RLock()
	v := h.value
	h.mu.RUnlock()
	if v == nil {
		return nil
	}
	return v.Materialize(rt)
}

// Snapshot returns the current snapshot.
func (h *SyncHolder) Snapshot() *Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.value
}

// Set replaces the stored snapshot.
func (h *SyncHolder) Set(v *Snapshot) {
	h.mu.Lock()
	h.value = v
	h.mu.Unlock()
}
