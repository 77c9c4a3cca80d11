package platform

import (
	"context"
	"sync"
	"time"
)

// DefaultFrameInterval is one 60Hz frame.
const DefaultFrameInterval = 16667 * time.Microsecond

// DisplayLink delivers frames on a fixed tick. Callbacks requested between
// two ticks are posted to the render thread on the next tick with the
// milliseconds elapsed since Run started.
type DisplayLink struct {
	interval time.Duration
	post     func(func()) bool

	mu      sync.Mutex
	pending []func(float64)
	running bool
	start   time.Time
	ticks   uint64
}

// NewDisplayLink creates a display link that hands frame callbacks to post,
// usually the render queue.
func NewDisplayLink(interval time.Duration, post func(func()) bool) *DisplayLink {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &DisplayLink{interval: interval, post: post}
}

// Interval returns the tick interval.
func (d *DisplayLink) Interval() time.Duration { return d.interval }

// Ticks returns how many ticks have fired.
func (d *DisplayLink) Ticks() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ticks
}

// RequestNextFrame implements frame.Requester.
func (d *DisplayLink) RequestNextFrame(cb func(timestamp float64)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return ErrDisplayLinkStopped
	}
	d.pending = append(d.pending, cb)
	return nil
}

// Start makes the display link accept requests before Run begins
// ticking. Run calls it as well.
func (d *DisplayLink) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	d.running = true
	d.start = time.Now()
}

// Run ticks until ctx is done. Requests are rejected once it returns.
func (d *DisplayLink) Run(ctx context.Context) error {
	d.Start()

	ticker := time.NewTicker(d.interval)
	defer func() {
		ticker.Stop()
		d.mu.Lock()
		d.running = false
		d.pending = nil
		d.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			d.tick(now)
		}
	}
}

func (d *DisplayLink) tick(now time.Time) {
	d.mu.Lock()
	cbs := d.pending
	d.pending = nil
	d.ticks++
	ts := float64(now.Sub(d.start)) / float64(time.Millisecond)
	d.mu.Unlock()

	for _, cb := range cbs {
		d.post(func() { cb(ts) })
	}
}
