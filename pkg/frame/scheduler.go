// Package frame schedules render passes against a platform display link.
//
// The scheduler is either idle or waiting for a requested frame. Requests
// made while waiting are coalesced into the one outstanding platform
// request. All methods run on the render thread.
package frame

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-drift/motion/pkg/errors"
)

// Requester is the platform "request next frame" primitive. It must call
// cb exactly once on the render thread, or never for a dropped frame.
type Requester interface {
	RequestNextFrame(cb func(timestamp float64)) error
}

// RequesterFunc adapts a function to Requester.
type RequesterFunc func(cb func(timestamp float64)) error

// RequestNextFrame implements Requester.
func (f RequesterFunc) RequestNextFrame(cb func(timestamp float64)) error { return f(cb) }

// Callback is a one-shot frame callback.
type Callback func(timestamp float64)

// Clock provides wall time for frame tracing.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// State is the scheduler state.
type State int

const (
	Idle State = iota
	FrameRequested
)

func (s State) String() string {
	if s == FrameRequested {
		return "frame-requested"
	}
	return "idle"
}

// Scheduler drives frames.
type Scheduler struct {
	// Pass runs after the frame callbacks: mapper execution and the
	// operations flush.
	Pass func(timestamp float64)
	// NeedsFrame reports whether work left after the pass wants another
	// frame.
	NeedsFrame func() bool
	// Trace, when set, receives one sample per frame.
	Trace *TraceBuffer
	// Tracer emits one span per frame. Defaults to the global provider.
	Tracer trace.Tracer
	// Clock defaults to system time.
	Clock Clock

	requester Requester
	state     State
	callbacks []Callback

	paused         bool
	pendingOnPause bool
	delivering     bool

	frames   uint64
	requests uint64
	lastTS   float64
}

// NewScheduler creates an idle scheduler over the platform requester.
func NewScheduler(requester Requester) *Scheduler {
	return &Scheduler{
		requester: requester,
		Tracer:    otel.Tracer("github.com/go-drift/motion/pkg/frame"),
		Clock:     realClock{},
	}
}

// State returns the current state.
func (s *Scheduler) State() State { return s.state }

// Frames returns how many frames have been delivered.
func (s *Scheduler) Frames() uint64 { return s.frames }

// Requests returns how many times the platform primitive was called.
func (s *Scheduler) Requests() uint64 { return s.requests }

// LastTimestamp returns the timestamp of the last delivered frame.
func (s *Scheduler) LastTimestamp() float64 { return s.lastTS }

// Pending returns the number of queued frame callbacks.
func (s *Scheduler) Pending() int { return len(s.callbacks) }

// RequestRender asks the platform for a frame unless one is already
// outstanding. While paused the request is remembered for Resume. A
// platform failure is reported and leaves the scheduler idle so the next
// call retries.
func (s *Scheduler) RequestRender() {
	if s.paused {
		s.pendingOnPause = true
		return
	}
	if s.state == FrameRequested {
		return
	}
	s.state = FrameRequested
	s.requests++
	if err := s.requester.RequestNextFrame(s.deliver); err != nil {
		s.state = Idle
		errors.Report(&errors.MotionError{
			Op:   "frame.RequestRender",
			Kind: errors.KindScheduler,
			Err:  &errors.SchedulerError{Err: err},
		})
	}
}

// PostFrameCallback queues cb for the next frame and requests one. Each
// callback runs exactly once.
func (s *Scheduler) PostFrameCallback(cb Callback) {
	if cb == nil {
		return
	}
	s.callbacks = append(s.callbacks, cb)
	s.RequestRender()
}

// Pause stops issuing platform requests. A frame already requested may
// still arrive and is processed normally.
func (s *Scheduler) Pause() {
	s.paused = true
}

// Resume re-enables requests and issues one if anything asked for a frame
// while paused.
func (s *Scheduler) Resume() {
	if !s.paused {
		return
	}
	s.paused = false
	if s.pendingOnPause || len(s.callbacks) > 0 || s.needsFrame() {
		s.pendingOnPause = false
		s.RequestRender()
	}
}

// InFrame reports whether a frame is being delivered. Work noticed now is
// picked up by this frame's Pass or by NeedsFrame.
func (s *Scheduler) InFrame() bool { return s.delivering }

// Paused reports whether the scheduler is paused.
func (s *Scheduler) Paused() bool { return s.paused }

func (s *Scheduler) needsFrame() bool {
	return s.NeedsFrame != nil && s.NeedsFrame()
}

// deliver is handed to the platform as the frame callback.
func (s *Scheduler) deliver(timestamp float64) {
	start := s.Clock.Now()
	s.state = Idle
	s.delivering = true
	s.frames++
	s.lastTS = timestamp

	_, span := s.Tracer.Start(context.Background(), "motion.frame",
		trace.WithAttributes(
			attribute.Int64("motion.frame.number", int64(s.frames)),
			attribute.Float64("motion.frame.timestamp", timestamp),
		))
	defer span.End()

	cbs := s.callbacks
	s.callbacks = nil
	failed := 0
	for _, cb := range cbs {
		if !errors.Invoke("frame.Callback", "frame callback", 0, "", func() error {
			cb(timestamp)
			return nil
		}) {
			failed++
		}
	}
	afterCallbacks := s.Clock.Now()

	if s.Pass != nil {
		errors.Invoke("frame.Pass", "frame pass", 0, "", func() error {
			s.Pass(timestamp)
			return nil
		})
	}
	afterPass := s.Clock.Now()
	s.delivering = false

	again := len(s.callbacks) > 0 || s.needsFrame()
	span.SetAttributes(
		attribute.Int("motion.frame.callbacks", len(cbs)),
		attribute.Int("motion.frame.failed", failed),
		attribute.Bool("motion.frame.requeued", again),
	)

	if s.Trace != nil {
		total := afterPass.Sub(start)
		s.Trace.Add(Sample{
			Timestamp: start.UnixMilli(),
			Frame:     s.frames,
			FrameMs:   durationToMillis(total),
			Phases: Phases{
				CallbacksMs: durationToMillis(afterCallbacks.Sub(start)),
				PassMs:      durationToMillis(afterPass.Sub(afterCallbacks)),
			},
			Callbacks: len(cbs),
			Failed:    failed,
			Requeued:  again,
		}, total)
	}

	if again {
		s.RequestRender()
	}
}
