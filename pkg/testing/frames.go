package testing

import (
	"sync"
)

// DefaultFrameInterval is the timestamp step between manual frames (ms).
const DefaultFrameInterval = 1000.0 / 60.0

// ManualFrames is a frame requester whose frames are delivered by the
// test. It counts platform requests so coalescing can be asserted.
type ManualFrames struct {
	// Interval is the timestamp step per delivered frame in milliseconds.
	// Zero means DefaultFrameInterval.
	Interval float64

	mu      sync.Mutex
	pending []func(float64)
	calls   int
	err     error
	ts      float64
}

// NewManualFrames returns a requester with no outstanding frames.
func NewManualFrames() *ManualFrames {
	return &ManualFrames{}
}

// RequestNextFrame implements frame.Requester.
func (m *ManualFrames) RequestNextFrame(cb func(timestamp float64)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.pending = append(m.pending, cb)
	return nil
}

// FailWith makes subsequent requests fail with err. Pass nil to recover.
func (m *ManualFrames) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Calls returns how many times RequestNextFrame was called.
func (m *ManualFrames) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Pending returns the number of requested frames not yet delivered.
func (m *ManualFrames) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Timestamp returns the timestamp of the last delivered frame.
func (m *ManualFrames) Timestamp() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ts
}

// Deliver runs the oldest requested frame and reports whether there was
// one.
func (m *ManualFrames) Deliver() bool {
	m.mu.Lock()
	if len(m.pending) == 0 {
		m.mu.Unlock()
		return false
	}
	cb := m.pending[0]
	m.pending = m.pending[1:]
	m.ts += m.step()
	ts := m.ts
	m.mu.Unlock()

	cb(ts)
	return true
}

func (m *ManualFrames) step() float64 {
	if m.Interval <= 0 {
		return DefaultFrameInterval
	}
	return m.Interval
}

// interval returns the timestamp step per frame.
func (m *ManualFrames) interval() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.step()
}

// Pump delivers frames until none are requested or max frames ran, and
// returns how many ran.
func (m *ManualFrames) Pump(max int) int {
	n := 0
	for n < max && m.Deliver() {
		n++
	}
	return n
}

// Drop discards every outstanding request, simulating dropped frames.
func (m *ManualFrames) Drop() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.pending)
	m.pending = nil
	return n
}
