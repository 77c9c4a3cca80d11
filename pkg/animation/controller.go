// Package animation drives cell values frame by frame.
//
// An [Animation] computes a value from a frame timestamp. A [Controller]
// runs one animation at a time against a [Target], writing the value on
// every frame until the animation reports it is done:
//
//	ctrl := animation.NewController(engine, binding)
//	ctrl.Animate(&animation.Timing{To: 1, Duration: 300 * time.Millisecond}, nil)
//
// Controllers belong to the render thread, like the cells they write.
// [Tween] and the curves map progress onto other value ranges.
package animation

import (
	"fmt"

	"github.com/go-drift/motion/pkg/errors"
)

// Status is the state of a controller's current run.
//
//	          Animate()
//	Idle ───────────────► Running ──► Finished
//	                         │
//	                Stop() / Animate()
//	                         ▼
//	                      Canceled
type Status int

const (
	// StatusIdle means nothing has run yet.
	StatusIdle Status = iota
	// StatusRunning means frames are being requested.
	StatusRunning
	// StatusFinished means the last run reached its end.
	StatusFinished
	// StatusCanceled means the last run was stopped or replaced.
	StatusCanceled
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusFinished:
		return "finished"
	case StatusCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// FrameSource schedules one-shot frame callbacks.
type FrameSource interface {
	RequestAnimationFrame(cb func(timestamp float64))
}

// Target is what an animation writes to. A render-runtime cell binding is
// a Target.
type Target interface {
	Float() float64
	Set(v any) error
}

// Controller runs animations against a target.
type Controller struct {
	frames FrameSource
	target Target

	anim    Animation
	onDone  func(Status)
	run     uint64
	started bool
	status  Status
	value   float64
	frameN  int

	listeners      map[int]func(Status)
	nextListenerID int
}

// NewController creates a controller writing to target on frames from
// frames.
func NewController(frames FrameSource, target Target) *Controller {
	return &Controller{
		frames:    frames,
		target:    target,
		listeners: make(map[int]func(Status)),
	}
}

// Animate starts a, replacing the current run, which ends as canceled.
// onDone, when set, receives the final status of this run.
func (c *Controller) Animate(a Animation, onDone func(Status)) {
	if c.status == StatusRunning {
		c.finish(StatusCanceled)
	}
	if a == nil {
		return
	}
	c.run++
	c.anim = a
	c.onDone = onDone
	c.started = false
	c.frameN = 0
	c.setStatus(StatusRunning)

	run := c.run
	c.frames.RequestAnimationFrame(func(ts float64) { c.tick(run, ts) })
}

// Stop cancels the current run, leaving the target at its last value.
func (c *Controller) Stop() {
	if c.status == StatusRunning {
		c.finish(StatusCanceled)
	}
}

func (c *Controller) tick(run uint64, ts float64) {
	if run != c.run || c.status != StatusRunning {
		return
	}
	var done bool
	ok := errors.Invoke("animation.Frame", "animation", run, "", func() error {
		if !c.started {
			c.anim.Start(c.target.Float(), ts)
			c.started = true
		}
		var v float64
		v, done = c.anim.Step(ts)
		c.value = v
		c.frameN++
		return c.target.Set(v)
	})
	switch {
	case !ok:
		c.finish(StatusCanceled)
	case done:
		c.finish(StatusFinished)
	default:
		c.frames.RequestAnimationFrame(func(ts float64) { c.tick(run, ts) })
	}
}

func (c *Controller) finish(s Status) {
	done := c.onDone
	c.anim = nil
	c.onDone = nil
	c.setStatus(s)
	if done != nil {
		done(s)
	}
}

// Status returns the status of the current or last run.
func (c *Controller) Status() Status { return c.status }

// IsAnimating reports whether a run is in progress.
func (c *Controller) IsAnimating() bool { return c.status == StatusRunning }

// Value returns the last value written.
func (c *Controller) Value() float64 { return c.value }

// Frames returns how many frames the current or last run wrote.
func (c *Controller) Frames() int { return c.frameN }

// AddStatusListener adds a callback that fires whenever the status changes.
// Returns an unsubscribe function.
func (c *Controller) AddStatusListener(fn func(Status)) func() {
	id := c.nextListenerID
	c.nextListenerID++
	c.listeners[id] = fn
	return func() {
		delete(c.listeners, id)
	}
}

func (c *Controller) setStatus(s Status) {
	if c.status == s {
		return
	}
	c.status = s
	for _, listener := range c.listeners {
		listener(s)
	}
}
