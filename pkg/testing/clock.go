package testing

import (
	"sync"
	"time"
)

// FakeClock is a frame.Clock whose time moves only when told to. Safe for
// concurrent use.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// fakeEpoch is where every FakeClock starts.
var fakeEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// NewFakeClock returns a clock at a fixed epoch.
func NewFakeClock() *FakeClock {
	return &FakeClock{now: fakeEpoch}
}

// Now implements frame.Clock.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new time.
func (c *FakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// AdvanceMillis moves the clock by a frame-timestamp delta in
// milliseconds.
func (c *FakeClock) AdvanceMillis(ms float64) time.Time {
	return c.Advance(time.Duration(ms * float64(time.Millisecond)))
}

// Set jumps to t, which may be in the past.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Elapsed returns the time since the epoch the clock started at.
func (c *FakeClock) Elapsed() time.Duration {
	return c.Now().Sub(fakeEpoch)
}
