// Package event routes platform events to registered handlers.
//
// Handlers are keyed by an exact event key. Registration and processing
// happen on the render thread; IsAnyHandlerWaitingForEvent may be called
// from any goroutine so platform code can skip building payloads nobody
// listens to.
package event

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-drift/motion/pkg/errors"
)

// Event is a decoded platform event.
type Event struct {
	Key       string
	Payload   any
	Timestamp float64
}

// Handler reacts to an event on the render thread.
type Handler func(ev Event) error

// Key builds the event key for a view. Platform names starting with "top"
// are renamed to their "on" form, so Key(12, "topScroll") is "12onScroll".
func Key(viewTag int64, eventType string) string {
	if rest, ok := strings.CutPrefix(eventType, "top"); ok {
		eventType = "on" + rest
	}
	return strconv.FormatInt(viewTag, 10) + eventType
}

type entry struct {
	id      uint64
	key     string
	handler Handler
}

// Registry holds the event handlers of one render runtime.
type Registry struct {
	nextID atomic.Uint64

	handlers map[uint64]*entry
	byKey    map[string][]uint64

	mu      sync.RWMutex
	waiting map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[uint64]*entry),
		byKey:    make(map[string][]uint64),
		waiting:  make(map[string]int),
	}
}

// ReserveID allocates the next handler id. Safe from any goroutine.
func (r *Registry) ReserveID() uint64 {
	return r.nextID.Add(1)
}

// Register adds handler for key and returns its id.
func (r *Registry) Register(key string, handler Handler) (uint64, error) {
	id := r.ReserveID()
	if err := r.RegisterWithID(id, key, handler); err != nil {
		return 0, err
	}
	return id, nil
}

// RegisterWithID adds handler under an id obtained from ReserveID.
func (r *Registry) RegisterWithID(id uint64, key string, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("event handler %d: nil handler", id)
	}
	if id == 0 || id > r.nextID.Load() {
		return fmt.Errorf("event handler %d: id was not reserved", id)
	}
	if _, ok := r.handlers[id]; ok {
		return fmt.Errorf("event handler %d: already registered", id)
	}
	r.handlers[id] = &entry{id: id, key: key, handler: handler}
	r.byKey[key] = append(r.byKey[key], id)

	r.mu.Lock()
	r.waiting[key]++
	r.mu.Unlock()
	return nil
}

// Unregister removes a handler. Unknown ids are ignored.
func (r *Registry) Unregister(id uint64) bool {
	e, ok := r.handlers[id]
	if !ok {
		return false
	}
	delete(r.handlers, id)
	ids := r.byKey[e.key]
	if i := slices.Index(ids, id); i >= 0 {
		ids = slices.Delete(ids, i, i+1)
	}
	if len(ids) == 0 {
		delete(r.byKey, e.key)
	} else {
		r.byKey[e.key] = ids
	}

	r.mu.Lock()
	if r.waiting[e.key]--; r.waiting[e.key] <= 0 {
		delete(r.waiting, e.key)
	}
	r.mu.Unlock()
	return true
}

// Process runs every handler registered for ev.Key in registration order
// and returns how many ran. A failing handler is reported and the rest
// still run. Handlers unregistered by an earlier handler in the same call
// are skipped; handlers registered during the call wait for the next event.
func (r *Registry) Process(ev Event) int {
	ids := slices.Clone(r.byKey[ev.Key])
	ran := 0
	for _, id := range ids {
		e, ok := r.handlers[id]
		if !ok {
			continue
		}
		errors.Invoke("event.Process", "event handler", id, ev.Key, func() error {
			return e.handler(ev)
		})
		ran++
	}
	return ran
}

// IsAnyHandlerWaitingForEvent reports whether a handler is registered for
// key. Safe from any goroutine.
func (r *Registry) IsAnyHandlerWaitingForEvent(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.waiting[key] > 0
}

// Len returns the number of registered handlers.
func (r *Registry) Len() int {
	return len(r.handlers)
}

// Counts returns the number of handlers per key. Safe from any goroutine.
func (r *Registry) Counts() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int, len(r.waiting))
	for k, n := range r.waiting {
		out[k] = n
	}
	return out
}

// Close removes every handler.
func (r *Registry) Close() {
	for id := range r.handlers {
		r.Unregister(id)
	}
}
