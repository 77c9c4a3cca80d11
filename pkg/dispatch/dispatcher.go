package dispatch

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Dispatcher owns the control and render queues.
type Dispatcher struct {
	Control *Queue
	Render  *Queue
}

// New creates a dispatcher with two empty queues.
func New() *Dispatcher {
	return &Dispatcher{
		Control: NewQueue("control"),
		Render:  NewQueue("render"),
	}
}

// ScheduleOnRender posts fn to the render thread.
func (d *Dispatcher) ScheduleOnRender(fn func()) bool {
	return d.Render.Post(fn)
}

// ScheduleOnControl posts fn to the control thread.
func (d *Dispatcher) ScheduleOnControl(fn func()) bool {
	return d.Control.Post(fn)
}

// Run drives both queues on their own goroutines until ctx is done or both
// queues are closed.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.Render.Run(ctx) })
	g.Go(func() error { return d.Control.Run(ctx) })
	return g.Wait()
}

// Close closes both queues.
func (d *Dispatcher) Close() {
	d.Render.Close()
	d.Control.Close()
}

// Query computes fn on the render thread and delivers its result to then on
// the control thread. Neither thread blocks: the render closure posts its
// own continuation back. It returns false if the query could not be posted.
func Query[T any](d *Dispatcher, fn func() T, then func(T)) bool {
	return d.ScheduleOnRender(func() {
		result := fn()
		d.ScheduleOnControl(func() { then(result) })
	})
}
