package platform

import (
	"sync"
)

// LifecycleState represents the host application state.
type LifecycleState string

const (
	// LifecycleStateResumed indicates the host is visible and rendering.
	LifecycleStateResumed LifecycleState = "resumed"

	// LifecycleStateInactive indicates the host is transitioning, for
	// example behind a system dialog.
	LifecycleStateInactive LifecycleState = "inactive"

	// LifecycleStatePaused indicates the host is not visible.
	LifecycleStatePaused LifecycleState = "paused"

	// LifecycleStateDetached indicates the host has no view attached.
	LifecycleStateDetached LifecycleState = "detached"
)

// Rendering reports whether frames should be produced in this state.
func (s LifecycleState) Rendering() bool {
	return s == LifecycleStateResumed || s == LifecycleStateInactive
}

// LifecycleHandler is called when lifecycle state changes.
type LifecycleHandler func(state LifecycleState)

// Lifecycle tracks the host lifecycle state.
type Lifecycle struct {
	mu       sync.RWMutex
	state    LifecycleState
	nextID   int
	handlers map[int]LifecycleHandler
	order    []int
}

// NewLifecycle returns a lifecycle in the resumed state.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		state:    LifecycleStateResumed,
		handlers: make(map[int]LifecycleHandler),
	}
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() LifecycleState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// AddHandler registers a handler to be called on lifecycle changes.
// Returns a function that removes the handler.
func (l *Lifecycle) AddHandler(handler LifecycleHandler) func() {
	l.mu.Lock()
	l.nextID++
	id := l.nextID
	l.handlers[id] = handler
	l.order = append(l.order, id)
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.handlers, id)
		l.mu.Unlock()
	}
}

// SetState updates the state and notifies handlers in registration order.
// Setting the current state again is a no-op.
func (l *Lifecycle) SetState(newState LifecycleState) {
	l.mu.Lock()
	if l.state == newState {
		l.mu.Unlock()
		return
	}
	l.state = newState
	handlers := make([]LifecycleHandler, 0, len(l.handlers))
	live := l.order[:0]
	for _, id := range l.order {
		if h, ok := l.handlers[id]; ok {
			handlers = append(handlers, h)
			live = append(live, id)
		}
	}
	l.order = live
	l.mu.Unlock()

	for _, h := range handlers {
		h(newState)
	}
}
