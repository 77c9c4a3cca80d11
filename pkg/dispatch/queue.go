// Package dispatch moves closures between the control and render threads.
//
// Each thread is a goroutine draining its own FIFO [Queue]. Posting never
// blocks and never waits for the closure to run. Order is preserved within
// a queue; nothing is promised about the relative order of two queues.
package dispatch

import (
	"context"
	"runtime"
	"sync"

	"github.com/go-drift/motion/pkg/errors"
)

// Queue is a FIFO of closures consumed by a single goroutine.
type Queue struct {
	// LockOSThread pins the goroutine running Run to its OS thread.
	LockOSThread bool

	name   string
	mu     sync.Mutex
	items  []func()
	wake   chan struct{}
	closed bool
}

// NewQueue creates an empty queue. name is used in panic reports.
func NewQueue(name string) *Queue {
	return &Queue{
		name: name,
		wake: make(chan struct{}, 1),
	}
}

// Name returns the queue name.
func (q *Queue) Name() string { return q.name }

// Post appends fn to the queue. It returns false when fn is nil or the
// queue has been closed, in which case fn will never run.
func (q *Queue) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// Len returns the number of closures waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain runs the closures queued at the time of the call, in order, and
// returns how many ran. Closures posted while draining wait for the next
// Drain. A panicking closure is reported and the rest still run.
func (q *Queue) Drain() int {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()

	for _, fn := range items {
		q.run(fn)
	}
	return len(items)
}

func (q *Queue) run(fn func()) {
	defer errors.Recover("dispatch." + q.name)
	fn()
}

// Run drains the queue until ctx is done or the queue is closed.
func (q *Queue) Run(ctx context.Context) error {
	if q.LockOSThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}
	for {
		q.Drain()
		if q.Len() > 0 {
			continue
		}
		q.mu.Lock()
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.wake:
		}
	}
}

// Close stops accepting work. Closures already queued still run on the next
// Drain; a running Run loop drains them and returns.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
