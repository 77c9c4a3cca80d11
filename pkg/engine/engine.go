// Package engine wires the reactive core into a running system.
//
// An [Engine] owns two goroutines, the control thread and the render
// thread, each draining its own queue. Cells, mappers, event handlers and
// the frame scheduler belong to the render thread. The control API in
// control.go never touches them directly: it adapts values synchronously,
// reserves handles, and posts the rest to the render queue. Render-side
// entry points in render.go must be called on the render thread.
package engine

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/go-drift/motion/pkg/animation"
	"github.com/go-drift/motion/pkg/cell"
	"github.com/go-drift/motion/pkg/dispatch"
	"github.com/go-drift/motion/pkg/errors"
	"github.com/go-drift/motion/pkg/event"
	"github.com/go-drift/motion/pkg/frame"
	"github.com/go-drift/motion/pkg/mapper"
	"github.com/go-drift/motion/pkg/platform"
	"github.com/go-drift/motion/pkg/props"
	"github.com/go-drift/motion/pkg/shareable"
)

// ErrClosed is returned by control calls made after Close.
var ErrClosed = stderrors.New("engine closed")

// Options configures an Engine.
type Options struct {
	// Host receives view property updates. Defaults to an empty
	// platform.MemoryHost.
	Host platform.ViewHost
	// Frames is the platform frame primitive. When nil the engine runs its
	// own display link at FrameInterval while Run is active.
	Frames frame.Requester
	// FrameInterval is the display link period. Zero means 60Hz.
	FrameInterval time.Duration
	// Decoder decodes raw event payloads. Defaults to JSON.
	Decoder platform.EventDecoder
	// Lifecycle, when set, pauses frames while the host is not rendering.
	Lifecycle *platform.Lifecycle
	// ShortCircuitEqualWrites drops cell writes of an equal value.
	ShortCircuitEqualWrites bool
	// LockRenderThread pins the render goroutine to its OS thread.
	LockRenderThread bool
	// UIProps and NativeProps preconfigure the property router, as
	// ConfigureProps does.
	UIProps     []string
	NativeProps []string
	// OnControlProps receives, on the control thread, view properties that
	// are neither UI nor native properties.
	OnControlProps func(viewTag int64, props map[string]any)
	// Diagnostics enables frame tracing and the debug server.
	Diagnostics *Diagnostics
	// Tracer overrides the tracer used for frame spans.
	Tracer trace.Tracer
	// Clock overrides the clock used for frame timing.
	Clock frame.Clock
}

// Engine is one control/render runtime pair.
type Engine struct {
	opts Options

	dispatch *dispatch.Dispatcher
	store    *cell.Store
	control  *cell.Runtime
	render   *cell.Runtime
	adapter  *shareable.Adapter

	mappers *mapper.Registry
	events  *event.Registry
	frames  *frame.Scheduler
	router  *props.Router
	host    platform.ViewHost
	decoder platform.EventDecoder

	animations map[uint64]*animation.Controller

	displayLink *platform.DisplayLink
	trace       *frame.TraceBuffer
	samples     *RuntimeSampleBuffer
	debug       debugServer

	closed      atomic.Bool
	closeOnce   sync.Once
	unlisten    func()
	eventPasses atomic.Uint64
	// Render thread only.
	inEvent bool
}

// New creates an engine. Nothing runs until Run is called or the queues
// are drained by hand.
func New(opts Options) *Engine {
	e := &Engine{opts: opts, animations: make(map[uint64]*animation.Controller)}
	e.dispatch = dispatch.New()
	e.dispatch.Render.LockOSThread = opts.LockRenderThread

	e.store = cell.NewStore(nil, e.dispatch)
	e.store.ShortCircuitEqualWrites = opts.ShortCircuitEqualWrites
	e.control = cell.NewRuntime(shareable.ControlRuntime, e.store)
	e.render = cell.NewRuntime(shareable.RenderRuntime, e.store)
	e.adapter = &shareable.Adapter{Cells: e.store}

	e.host = opts.Host
	if e.host == nil {
		e.host = platform.NewMemoryHost()
	}
	e.decoder = opts.Decoder
	if e.decoder == nil {
		e.decoder = platform.DefaultCodec
	}

	requester := opts.Frames
	if requester == nil {
		e.displayLink = platform.NewDisplayLink(opts.FrameInterval, e.dispatch.ScheduleOnRender)
		requester = e.displayLink
	}

	e.mappers = mapper.NewRegistry(e.render)
	e.events = event.NewRegistry()
	e.frames = frame.NewScheduler(requester)
	if opts.Tracer != nil {
		e.frames.Tracer = opts.Tracer
	}
	if opts.Clock != nil {
		e.frames.Clock = opts.Clock
	}
	e.router = props.NewRouter(e.host, e.forwardProps)
	if len(opts.UIProps) > 0 || len(opts.NativeProps) > 0 {
		e.router.Configure(opts.UIProps, opts.NativeProps)
	}

	e.mappers.OnDirty = e.mapperDirty
	e.frames.NeedsFrame = e.needsFrame
	e.frames.Pass = e.framePass

	if d := opts.Diagnostics; d != nil {
		if d.TraceFrames || d.DebugServerPort > 0 {
			e.trace = frame.NewTraceBuffer(d.TraceSamples, d.TargetFrameTime)
			e.frames.Trace = e.trace
		}
		interval, window := runtimeSampleConfig(d)
		if d.DebugServerPort > 0 && interval > 0 {
			e.samples = NewRuntimeSampleBuffer(window, interval)
		}
	}

	if opts.Lifecycle != nil {
		e.unlisten = opts.Lifecycle.AddHandler(func(s platform.LifecycleState) {
			if s.Rendering() {
				e.Resume()
			} else {
				e.Pause()
			}
		})
	}
	return e
}

// Run drives the control and render queues, the display link and the
// diagnostics until ctx is done or the engine is closed.
func (e *Engine) Run(ctx context.Context) error {
	if e.closed.Load() {
		return ErrClosed
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if d := e.opts.Diagnostics; d != nil && d.DebugServerPort > 0 {
		if _, err := e.StartDebugServer(d.DebugServerPort); err != nil {
			return err
		}
		defer e.StopDebugServer()
	}

	if e.displayLink != nil {
		e.displayLink.Start()
	}
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer cancel()
		return e.dispatch.Run(gctx)
	})
	if e.displayLink != nil {
		g.Go(func() error { return ignoreCanceled(e.displayLink.Run(gctx)) })
	}
	if e.samples != nil {
		g.Go(func() error { return ignoreCanceled(e.sampleRuntime(gctx, e.samples)) })
	}
	err := g.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return ignoreCanceled(err)
}

func ignoreCanceled(err error) error {
	if stderrors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close tears down the render runtime and stops both queues. Work already
// queued still runs; every later call is a no-op. Handles held by the
// control runtime become stale.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		if e.unlisten != nil {
			e.unlisten()
		}
		e.dispatch.ScheduleOnRender(func() {
			for _, ctrl := range e.animations {
				ctrl.Stop()
			}
			e.mappers.Close()
			e.events.Close()
			e.store.Close()
			e.render.Forget()
			e.control.Forget()
		})
		e.dispatch.Close()
	})
}

// Closed reports whether Close has been called.
func (e *Engine) Closed() bool { return e.closed.Load() }

// Dispatcher returns the control/render queues.
func (e *Engine) Dispatcher() *dispatch.Dispatcher { return e.dispatch }

// Store returns the cell store.
func (e *Engine) Store() *cell.Store { return e.store }

// ControlRuntime returns the control-side materialization context.
func (e *Engine) ControlRuntime() *cell.Runtime { return e.control }

// RenderRuntime returns the render-side materialization context.
func (e *Engine) RenderRuntime() *cell.Runtime { return e.render }

// Mappers returns the mapper registry. Render thread only.
func (e *Engine) Mappers() *mapper.Registry { return e.mappers }

// Events returns the event handler registry. Render thread only, except
// IsAnyHandlerWaitingForEvent.
func (e *Engine) Events() *event.Registry { return e.events }

// Frames returns the frame scheduler. Render thread only.
func (e *Engine) Frames() *frame.Scheduler { return e.frames }

// Router returns the property router. Render thread only.
func (e *Engine) Router() *props.Router { return e.router }

// Host returns the view host.
func (e *Engine) Host() platform.ViewHost { return e.host }

// FrameTrace returns the frame trace buffer, or nil when tracing is off.
func (e *Engine) FrameTrace() *frame.TraceBuffer { return e.trace }

// EventPasses returns how many events have been processed.
func (e *Engine) EventPasses() uint64 { return e.eventPasses.Load() }

// mapperDirty requests a frame unless an event pass or the frame being
// delivered will run the mapper anyway.
func (e *Engine) mapperDirty() {
	if e.inEvent || e.frames.InFrame() {
		return
	}
	e.frames.RequestRender()
}

// needsFrame reports mapper work left for a frame: continuous mappers or
// dirtiness raised by the last pass.
func (e *Engine) needsFrame() bool {
	return e.mappers.NeedRunOnRender() || e.mappers.HasDirty()
}

// framePass runs after the frame callbacks of every frame.
func (e *Engine) framePass(float64) {
	e.mappers.Execute(mapper.PassFrame)
	e.router.PerformOperations()
}

// forwardProps hands unclassified view properties to the control thread.
func (e *Engine) forwardProps(viewTag int64, p map[string]any) {
	fn := e.opts.OnControlProps
	if fn == nil {
		return
	}
	e.dispatch.ScheduleOnControl(func() { fn(viewTag, p) })
}

// post queues fn on the render thread, reporting op as stale when the
// engine has shut down.
func (e *Engine) post(op string, id uint64, fn func()) bool {
	if e.closed.Load() || !e.dispatch.ScheduleOnRender(fn) {
		errors.Report(&errors.MotionError{Op: op, Kind: errors.KindStaleHandle, ID: id, Err: ErrClosed})
		return false
	}
	return true
}
