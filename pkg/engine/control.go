package engine

import (
	"fmt"

	"github.com/go-drift/motion/pkg/cell"
	"github.com/go-drift/motion/pkg/dispatch"
	"github.com/go-drift/motion/pkg/errors"
	"github.com/go-drift/motion/pkg/event"
	"github.com/go-drift/motion/pkg/mapper"
	"github.com/go-drift/motion/pkg/shareable"
)

// Control-thread API. None of these calls block; work that touches
// render-owned state is posted to the render queue.

// Adapt converts a control-runtime value into a snapshot.
func (e *Engine) Adapt(v any) (*shareable.Snapshot, error) {
	return e.adapt(v, shareable.ForceNone)
}

// AdaptRemote wraps v in a remote handle.
func (e *Engine) AdaptRemote(v any) (*shareable.Snapshot, error) {
	return e.adapt(v, shareable.ForceRemote)
}

func (e *Engine) adapt(v any, force shareable.Force) (*shareable.Snapshot, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	val, err := shareable.From(v)
	if err != nil {
		return nil, err
	}
	return e.adapter.Adapt(val, shareable.ControlRuntime, force)
}

// MakeMutable creates a reactive cell holding v and returns the control
// runtime's binding to it. The cell carries one host reference, dropped by
// ReleaseCell.
func (e *Engine) MakeMutable(v any) (*cell.Binding, error) {
	snap, err := e.adapt(v, shareable.ForceCell)
	if err != nil {
		return nil, err
	}
	b := e.control.Binding(snap.CellRef())
	if b == nil {
		return nil, &errors.StaleHandleError{Unit: "cell", ID: snap.CellRef().CellID()}
	}
	return b, nil
}

// NewSyncHolder creates a holder both runtimes can read synchronously.
func (e *Engine) NewSyncHolder(v any) (*shareable.SyncHolder, error) {
	snap, err := e.Adapt(v)
	if err != nil {
		return nil, err
	}
	return shareable.NewSyncHolder(snap), nil
}

// ReleaseCell drops the host reference taken by MakeMutable. The cell
// stays alive while a mapper still uses it.
func (e *Engine) ReleaseCell(b *cell.Binding) {
	if b == nil {
		return
	}
	c := b.Cell()
	e.post("engine.ReleaseCell", c.CellID(), func() {
		if c.Removed() {
			return
		}
		c.Release()
	})
}

// extractCells adapts a declared dependency list and collects the cell
// ids it references.
func (e *Engine) extractCells(list []any) ([]uint64, error) {
	if len(list) == 0 {
		return nil, nil
	}
	snap, err := e.Adapt(list)
	if err != nil {
		return nil, err
	}
	return shareable.ExtractCells(snap), nil
}

// StartMapper registers a mapper and returns its handle immediately.
// inputs and outputs may contain cells, bindings, or any structure holding
// them; the referenced cells are collected in order. Adaptation failures
// are returned and nothing is registered. Registration itself, including
// the first run, happens on the render thread.
func (e *Engine) StartMapper(updater mapper.Updater, inputs, outputs []any, fast *mapper.FastPath) (uint64, error) {
	if updater == nil {
		return 0, fmt.Errorf("start mapper: nil updater")
	}
	ins, err := e.extractCells(inputs)
	if err != nil {
		return 0, err
	}
	outs, err := e.extractCells(outputs)
	if err != nil {
		return 0, err
	}
	id := e.mappers.ReserveID()
	e.post("engine.StartMapper", id, func() {
		if err := e.mappers.StartWithID(id, updater, ins, outs, fast); err != nil {
			errors.Report(&errors.MotionError{Op: "engine.StartMapper", Kind: errors.KindStaleHandle, ID: id, Err: err})
		}
	})
	return id, nil
}

// StopMapper unregisters a mapper. Unknown handles are ignored.
func (e *Engine) StopMapper(id uint64) {
	if e.closed.Load() {
		return
	}
	e.dispatch.ScheduleOnRender(func() { e.mappers.Stop(id) })
}

// RegisterEventHandler registers handler for key and returns its handle
// immediately. The handler runs on the render thread.
func (e *Engine) RegisterEventHandler(key string, handler event.Handler) (uint64, error) {
	if handler == nil {
		return 0, fmt.Errorf("register event handler %q: nil handler", key)
	}
	if e.closed.Load() {
		return 0, ErrClosed
	}
	id := e.events.ReserveID()
	e.post("engine.RegisterEventHandler", id, func() {
		if err := e.events.RegisterWithID(id, key, handler); err != nil {
			errors.Report(&errors.MotionError{Op: "engine.RegisterEventHandler", Kind: errors.KindStaleHandle, ID: id, Err: err})
		}
	})
	return id, nil
}

// UnregisterEventHandler removes a handler. Unknown handles are ignored.
func (e *Engine) UnregisterEventHandler(id uint64) {
	if e.closed.Load() {
		return
	}
	e.dispatch.ScheduleOnRender(func() { e.events.Unregister(id) })
}

// IsAnyHandlerWaitingForEvent reports whether a handler is registered for
// key. Safe from any goroutine. Registrations become visible once the
// render thread has processed them.
func (e *Engine) IsAnyHandlerWaitingForEvent(key string) bool {
	if e.closed.Load() {
		return false
	}
	return e.events.IsAnyHandlerWaitingForEvent(key)
}

// ScheduleOnRender runs a closure snapshot on the render thread with args.
// Only closures are accepted.
func (e *Engine) ScheduleOnRender(fn *shareable.Snapshot, args ...any) error {
	closure, err := closureOf("ScheduleOnRender", fn)
	if err != nil {
		return err
	}
	if !e.post("engine.ScheduleOnRender", 0, func() {
		errors.Invoke("engine.ScheduleOnRender", "render closure", 0, "", func() error {
			_, err := closure(args...)
			return err
		})
	}) {
		return ErrClosed
	}
	return nil
}

// RunOnControl runs a closure snapshot on the control thread with args.
// Render code uses it to report results back.
func (e *Engine) RunOnControl(fn *shareable.Snapshot, args ...any) error {
	closure, err := closureOf("RunOnControl", fn)
	if err != nil {
		return err
	}
	if e.closed.Load() || !e.dispatch.ScheduleOnControl(func() {
		errors.Invoke("engine.RunOnControl", "control closure", 0, "", func() error {
			_, err := closure(args...)
			return err
		})
	}) {
		return ErrClosed
	}
	return nil
}

func closureOf(op string, s *shareable.Snapshot) (shareable.Closure, error) {
	if s == nil || s.Kind() != shareable.KindClosure {
		got := "nil"
		if s != nil {
			got = s.Kind().String()
		}
		return nil, &errors.AdaptationError{Got: s, Reason: fmt.Sprintf("%s expects a closure, got %s", op, got)}
	}
	return s.Closure(), nil
}

// GetViewProp reads a view property on the render thread and delivers it
// to cb on the control thread.
func (e *Engine) GetViewProp(viewTag int64, name string, cb func(value any, err error)) {
	type result struct {
		value any
		err   error
	}
	if e.closed.Load() {
		return
	}
	dispatch.Query(e.dispatch, func() result {
		v, err := e.host.ViewProp(viewTag, name)
		return result{v, err}
	}, func(r result) {
		cb(r.value, r.err)
	})
}

// ConfigureProps sets which view properties are applied directly (ui) and
// which go through the layout batch (native).
func (e *Engine) ConfigureProps(uiProps, nativeProps []string) {
	ui := append([]string(nil), uiProps...)
	native := append([]string(nil), nativeProps...)
	e.post("engine.ConfigureProps", 0, func() { e.router.Configure(ui, native) })
}

// Pause stops requesting frames, as when the host goes to background.
func (e *Engine) Pause() {
	if e.closed.Load() {
		return
	}
	e.dispatch.ScheduleOnRender(e.frames.Pause)
}

// Resume restarts frames after Pause.
func (e *Engine) Resume() {
	if e.closed.Load() {
		return
	}
	e.dispatch.ScheduleOnRender(e.frames.Resume)
}
