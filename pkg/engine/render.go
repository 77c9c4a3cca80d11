package engine

import (
	"fmt"

	"github.com/go-drift/motion/pkg/errors"
	"github.com/go-drift/motion/pkg/event"
	"github.com/go-drift/motion/pkg/frame"
	"github.com/go-drift/motion/pkg/mapper"
)

// Render-thread entry points.

// OnEvent decodes and processes a platform event. Handlers run, then the
// mappers their writes dirtied, then queued layout operations are
// flushed, all before OnEvent returns. Events nobody listens to are not
// decoded. Render thread only.
func (e *Engine) OnEvent(key string, raw []byte, timestamp float64) {
	if e.closed.Load() || !e.events.IsAnyHandlerWaitingForEvent(key) {
		return
	}
	payload, err := e.decoder.DecodeEvent(key, raw)
	if err != nil {
		errors.Report(&errors.MotionError{
			Op:   "engine.OnEvent",
			Kind: errors.KindParsing,
			Err:  fmt.Errorf("decode %q: %w", key, err),
		})
		return
	}
	e.HandleEvent(event.Event{Key: key, Payload: payload, Timestamp: timestamp})
}

// HandleEvent processes an already decoded event. Render thread only.
func (e *Engine) HandleEvent(ev event.Event) {
	if e.closed.Load() {
		return
	}
	e.eventPasses.Add(1)
	nested := e.inEvent
	e.inEvent = true
	e.events.Process(ev)
	e.mappers.Execute(mapper.PassEvent)
	e.inEvent = nested
	e.router.PerformOperations()
	if !nested && e.needsFrame() {
		e.frames.RequestRender()
	}
}

// DispatchEvent delivers a platform event from any goroutine. It returns
// false without copying the payload when no handler waits for key.
func (e *Engine) DispatchEvent(key string, raw []byte, timestamp float64) bool {
	if !e.IsAnyHandlerWaitingForEvent(key) {
		return false
	}
	buf := append([]byte(nil), raw...)
	return e.dispatch.ScheduleOnRender(func() { e.OnEvent(key, buf, timestamp) })
}

// RequestAnimationFrame runs cb once on the next frame. Render thread only.
func (e *Engine) RequestAnimationFrame(cb func(timestamp float64)) {
	if e.closed.Load() {
		return
	}
	e.frames.PostFrameCallback(frame.Callback(cb))
}

// RequestRender asks for a frame. Render thread only.
func (e *Engine) RequestRender() {
	if e.closed.Load() {
		return
	}
	e.frames.RequestRender()
}

// UpdateProps routes view properties produced on the render thread, as a
// mapper's fast path does.
func (e *Engine) UpdateProps(viewTag int64, p map[string]any) error {
	if e.closed.Load() {
		return ErrClosed
	}
	return e.router.Update(viewTag, p)
}
