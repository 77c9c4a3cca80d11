package frame

import (
	"sync"
	"time"
)

const (
	traceSamplesDefault   = 240
	defaultTraceThreshold = 16667 * time.Microsecond
)

// Phases captures time spent in each part of a frame (ms).
type Phases struct {
	CallbacksMs float64 `json:"callbacksMs"`
	PassMs      float64 `json:"passMs"`
}

// Sample is a single frame trace sample.
type Sample struct {
	Timestamp int64   `json:"ts"`
	Frame     uint64  `json:"frame"`
	FrameMs   float64 `json:"frameMs"`
	Phases    Phases  `json:"phases"`
	Callbacks int     `json:"callbacks"`
	Failed    int     `json:"failed,omitempty"`
	Requeued  bool    `json:"requeued"`
}

// Timeline is the debug server response shape.
type Timeline struct {
	Samples     []Sample `json:"samples"`
	SlowFrames  int      `json:"slowFrames"`
	ThresholdMs float64  `json:"thresholdMs"`
}

// TraceBuffer stores recent frame samples in a ring buffer. Safe for
// concurrent use.
type TraceBuffer struct {
	mu        sync.RWMutex
	samples   []Sample
	index     int
	count     int
	slow      int
	threshold time.Duration
}

// NewTraceBuffer creates a buffer. Non-positive arguments select the
// defaults (240 samples, one 60Hz frame).
func NewTraceBuffer(capacity int, threshold time.Duration) *TraceBuffer {
	if capacity <= 0 {
		capacity = traceSamplesDefault
	}
	if threshold <= 0 {
		threshold = defaultTraceThreshold
	}
	return &TraceBuffer{
		samples:   make([]Sample, capacity),
		threshold: threshold,
	}
}

// Capacity returns the buffer capacity.
func (b *TraceBuffer) Capacity() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.samples)
}

// Add records a sample and counts it as slow when frameDuration exceeds
// the threshold.
func (b *TraceBuffer) Add(sample Sample, frameDuration time.Duration) {
	b.mu.Lock()
	b.samples[b.index] = sample
	b.index = (b.index + 1) % len(b.samples)
	if b.count < len(b.samples) {
		b.count++
	}
	if frameDuration > b.threshold {
		b.slow++
	}
	b.mu.Unlock()
}

// Snapshot returns a chronological copy of the samples.
func (b *TraceBuffer) Snapshot() Timeline {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.count == 0 {
		return Timeline{ThresholdMs: durationToMillis(b.threshold)}
	}

	result := make([]Sample, b.count)
	if b.count < len(b.samples) {
		copy(result, b.samples[:b.count])
	} else {
		copy(result, b.samples[b.index:])
		copy(result[len(b.samples)-b.index:], b.samples[:b.index])
	}

	return Timeline{
		Samples:     result,
		SlowFrames:  b.slow,
		ThresholdMs: durationToMillis(b.threshold),
	}
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
