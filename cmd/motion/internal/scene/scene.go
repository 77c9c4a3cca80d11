// Package scene is the demo played by "motion run": one box view that
// fades in, grows and slides while a simulated scroll event shifts it.
//
// Everything goes through the public engine API the way an embedding host
// would use it: a cell animated with a timing curve, a mapper deriving the
// box transform from that cell and a scroll cell, a scroll handler, and a
// fast path writing straight to the simulated view.
package scene

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/image/math/f64"

	"github.com/go-drift/motion/pkg/animation"
	"github.com/go-drift/motion/pkg/cell"
	"github.com/go-drift/motion/pkg/dispatch"
	"github.com/go-drift/motion/pkg/engine"
	"github.com/go-drift/motion/pkg/event"
	"github.com/go-drift/motion/pkg/mapper"
	"github.com/go-drift/motion/pkg/platform"
	"github.com/go-drift/motion/pkg/props"
)

// BoxTag is the view tag of the animated box.
const BoxTag int64 = 1

// ErrTimeout is returned when the animation does not finish in time.
var ErrTimeout = errors.New("scene timed out")

// Options configures a run.
type Options struct {
	// Engine options, usually from the config. Host is replaced.
	Engine engine.Options
	// Duration of the fade-in. Defaults to 500ms.
	Duration time.Duration
	// ScrollY is the scroll offset delivered mid-animation.
	ScrollY float64
	// Timeout bounds the whole run. Defaults to Duration plus five seconds.
	Timeout time.Duration
}

// Result describes the finished scene.
type Result struct {
	Props       map[string]any
	Status      animation.Status
	Frames      uint64
	EventPasses uint64
}

// BoxTransform is the transform of the box at progress p with scroll y.
// The box slides 200 units right and grows to 1.5x, and scrolling moves it
// up at half speed.
func BoxTransform(p, scrollY float64) f64.Aff3 {
	grow := animation.TweenAff3(Identity, Mul(Translate(200, 0), Scale(1.5)))
	return Mul(Translate(0, -scrollY/2), grow.Evaluate(p))
}

// boxProps derives the box view properties.
func boxProps(p, scrollY float64) map[string]any {
	m := BoxTransform(p, scrollY)
	return map[string]any{
		"opacity":   p,
		"transform": m[:],
		"height":    animation.LerpFloat64(100, 150, p),
	}
}

// Play runs the scene on a simulated host and returns the final view
// state.
func Play(ctx context.Context, opts Options) (*Result, error) {
	if opts.Duration <= 0 {
		opts.Duration = 500 * time.Millisecond
	}
	if opts.Timeout <= 0 {
		opts.Timeout = opts.Duration + 5*time.Second
	}

	host := platform.NewMemoryHost()
	host.AddView(BoxTag, boxProps(0, 0))

	o := opts.Engine
	o.Host = host
	o.Frames = nil
	if len(o.UIProps) == 0 && len(o.NativeProps) == 0 {
		o.UIProps = []string{"opacity", "transform"}
		o.NativeProps = []string{"height"}
	}
	e := engine.New(o)
	defer e.Close()

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- e.Run(ctx) }()

	progress, err := e.MakeMutable(0)
	if err != nil {
		return nil, err
	}
	scroll, err := e.MakeMutable(0)
	if err != nil {
		return nil, err
	}

	_, err = e.StartMapper(func(in []any, _ []*cell.Binding) (any, error) {
		p, _ := in[0].(float64)
		y, _ := in[1].(float64)
		return boxProps(p, y), nil
	}, []any{progress, scroll}, nil, &mapper.FastPath{
		Apply: []func(any) error{props.Direct(e.Router(), BoxTag, "")},
	})
	if err != nil {
		return nil, fmt.Errorf("start mapper: %w", err)
	}

	scrollKey := event.Key(BoxTag, "topScroll")
	_, err = e.RegisterEventHandler(scrollKey, func(ev event.Event) error {
		payload, ok := ev.Payload.(map[string]any)
		if !ok {
			return fmt.Errorf("scroll payload %T", ev.Payload)
		}
		y, _ := payload["y"].(float64)
		return e.RenderRuntime().Binding(scroll.Cell()).Set(y)
	})
	if err != nil {
		return nil, err
	}

	done := make(chan animation.Status, 1)
	err = e.Animate(progress, &animation.Timing{To: 1, Duration: opts.Duration, Curve: animation.EaseInOut},
		func(s animation.Status) { done <- s })
	if err != nil {
		return nil, err
	}

	if opts.ScrollY != 0 {
		raw, err := platform.DefaultCodec.Encode(map[string]any{"y": opts.ScrollY})
		if err != nil {
			return nil, err
		}
		// The platform delivers events on the render thread, after the
		// handler registration queued above.
		e.Dispatcher().ScheduleOnRender(func() { e.OnEvent(scrollKey, raw, 0) })
	}

	res := &Result{}
	select {
	case res.Status = <-done:
	case err := <-runErr:
		if err == nil {
			err = engine.ErrClosed
		}
		return nil, err
	case <-ctx.Done():
		return nil, ErrTimeout
	}

	// The last frame may still be flushing; read the counters after it.
	synced := make(chan struct{})
	dispatch.Query(e.Dispatcher(), func() [2]uint64 {
		return [2]uint64{e.Frames().Frames(), e.EventPasses()}
	}, func(v [2]uint64) {
		res.Frames, res.EventPasses = v[0], v[1]
		close(synced)
	})
	select {
	case <-synced:
	case <-ctx.Done():
		return nil, ErrTimeout
	}

	res.Props = host.Props(BoxTag)
	cancel()
	<-runErr
	return res, nil
}
