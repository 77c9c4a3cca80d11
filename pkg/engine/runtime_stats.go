package engine

import (
	"context"
	"runtime"
	"sync"
	"time"
)

const (
	defaultSampleInterval = 5 * time.Second
	defaultSampleWindow   = time.Minute
	minSampleInterval     = time.Second
	maxRuntimeSamples     = 120
)

// RuntimeSample is one reading of process and engine load.
type RuntimeSample struct {
	Timestamp    int64  `json:"ts"`
	HeapAlloc    uint64 `json:"heapAlloc"`
	HeapInuse    uint64 `json:"heapInuse"`
	NumGC        uint32 `json:"numGC"`
	LastPauseNs  uint64 `json:"lastPauseNs"`
	NumGoroutine int    `json:"numGoroutine"`
	// Engine state.
	Cells        int `json:"cells"`
	RenderQueue  int `json:"renderQueue"`
	ControlQueue int `json:"controlQueue"`
}

// ring is a fixed-capacity buffer keeping the newest entries.
type ring[T any] struct {
	buf  []T
	next int
	full bool
}

func (r *ring[T]) add(v T) {
	r.buf[r.next] = v
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
}

// items returns the entries oldest first.
func (r *ring[T]) items() []T {
	if !r.full {
		return append([]T(nil), r.buf[:r.next]...)
	}
	out := make([]T, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}

// RuntimeSampleBuffer keeps the samples of the last window. Safe for
// concurrent use.
type RuntimeSampleBuffer struct {
	mu       sync.RWMutex
	ring     ring[RuntimeSample]
	interval time.Duration
}

// NewRuntimeSampleBuffer creates a buffer holding window/interval samples,
// at most maxRuntimeSamples.
func NewRuntimeSampleBuffer(window, interval time.Duration) *RuntimeSampleBuffer {
	interval, window = sampleTiming(interval, window)
	n := min(max(int(window/interval), 1), maxRuntimeSamples)
	return &RuntimeSampleBuffer{
		ring:     ring[RuntimeSample]{buf: make([]RuntimeSample, n)},
		interval: interval,
	}
}

// Interval returns the sampling interval.
func (b *RuntimeSampleBuffer) Interval() time.Duration { return b.interval }

// Capacity returns how many samples are kept.
func (b *RuntimeSampleBuffer) Capacity() int { return len(b.ring.buf) }

// Add stores a sample, evicting the oldest when full.
func (b *RuntimeSampleBuffer) Add(s RuntimeSample) {
	b.mu.Lock()
	b.ring.add(s)
	b.mu.Unlock()
}

// Snapshot returns the samples oldest first.
func (b *RuntimeSampleBuffer) Snapshot() []RuntimeSample {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ring.items()
}

// sampleTiming applies defaults and the minimum interval.
func sampleTiming(interval, window time.Duration) (time.Duration, time.Duration) {
	if interval <= 0 {
		interval = defaultSampleInterval
	}
	interval = max(interval, minSampleInterval)
	if window <= 0 {
		window = defaultSampleWindow
	}
	return interval, max(window, interval)
}

func runtimeSampleConfig(d *Diagnostics) (interval, window time.Duration) {
	if d == nil {
		return 0, 0
	}
	return sampleTiming(d.RuntimeSampleInterval, d.RuntimeSampleWindow)
}

// readRuntimeSample reads process stats and the engine state that is safe
// to read off the render thread.
func (e *Engine) readRuntimeSample() RuntimeSample {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s := RuntimeSample{
		Timestamp:    time.Now().UnixMilli(),
		HeapAlloc:    ms.HeapAlloc,
		HeapInuse:    ms.HeapInuse,
		NumGC:        ms.NumGC,
		NumGoroutine: runtime.NumGoroutine(),
		Cells:        e.store.Len(),
		RenderQueue:  e.dispatch.Render.Len(),
		ControlQueue: e.dispatch.Control.Len(),
	}
	if ms.NumGC > 0 {
		s.LastPauseNs = ms.PauseNs[(ms.NumGC+255)%256]
	}
	return s
}

// sampleRuntime fills buffer every interval until ctx is done.
func (e *Engine) sampleRuntime(ctx context.Context, buffer *RuntimeSampleBuffer) error {
	buffer.Add(e.readRuntimeSample())
	ticker := time.NewTicker(buffer.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			buffer.Add(e.readRuntimeSample())
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
