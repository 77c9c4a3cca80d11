package testing

import (
	"errors"
	"testing"

	"github.com/go-drift/motion/pkg/engine"
	motionerrors "github.com/go-drift/motion/pkg/errors"
	"github.com/go-drift/motion/pkg/platform"
)

// maxFlushRounds bounds Flush so a closure that keeps re-posting itself
// cannot hang a test.
const maxFlushRounds = 10000

// ErrSettleLimit is returned when PumpAndSettle exceeds its frame budget.
var ErrSettleLimit = errors.New("PumpAndSettle hit its frame limit: engine did not settle")

// EngineTester drives an engine deterministically. Instead of running the
// control and render goroutines it drains both queues on the calling
// goroutine, and frames are delivered only when the test pumps them.
type EngineTester struct {
	engine *engine.Engine
	frames *ManualFrames
	host   *platform.MemoryHost
	clock  *FakeClock
	errs   *motionerrors.Collector
	prev   motionerrors.ErrorHandler
}

// NewEngineTester creates a tester. opts may adjust the engine options;
// Frames, Host and Clock are preset to the tester's fakes.
func NewEngineTester(opts ...func(*engine.Options)) *EngineTester {
	t := &EngineTester{
		frames: NewManualFrames(),
		host:   platform.NewMemoryHost(),
		clock:  NewFakeClock(),
		errs:   motionerrors.NewCollector(0, nil),
	}
	o := engine.Options{
		Frames: t.frames,
		Host:   t.host,
		Clock:  t.clock,
	}
	for _, fn := range opts {
		fn(&o)
	}
	t.engine = engine.New(o)
	t.prev = motionerrors.SetHandler(t.errs)
	return t
}

// NewEngineTesterWithT creates a tester that cleans up via t.Cleanup().
func NewEngineTesterWithT(tb testing.TB, opts ...func(*engine.Options)) *EngineTester {
	tester := NewEngineTester(opts...)
	tb.Cleanup(tester.Cleanup)
	return tester
}

// Cleanup closes the engine and restores the global error handler.
func (t *EngineTester) Cleanup() {
	t.engine.Close()
	t.Flush()
	motionerrors.SetHandler(t.prev)
}

// Engine returns the engine under test.
func (t *EngineTester) Engine() *engine.Engine { return t.engine }

// Frames returns the manual frame requester.
func (t *EngineTester) Frames() *ManualFrames { return t.frames }

// Host returns the in-memory view host.
func (t *EngineTester) Host() *platform.MemoryHost { return t.host }

// Clock returns the fake clock used for frame timing.
func (t *EngineTester) Clock() *FakeClock { return t.clock }

// Errors returns the collector receiving every reported error.
func (t *EngineTester) Errors() *motionerrors.Collector { return t.errs }

// Flush drains the render and control queues until both are empty and
// returns how many closures ran.
func (t *EngineTester) Flush() int {
	d := t.engine.Dispatcher()
	total := 0
	for range maxFlushRounds {
		n := d.Render.Drain() + d.Control.Drain()
		if n == 0 {
			break
		}
		total += n
	}
	return total
}

// OnRender runs fn on the render queue after everything already posted,
// then flushes.
func (t *EngineTester) OnRender(fn func(e *engine.Engine)) {
	t.engine.Dispatcher().ScheduleOnRender(func() { fn(t.engine) })
	t.Flush()
}

// Pump flushes the queues, delivers one requested frame if there is one,
// and flushes again. The clock moves by one frame interval per delivered
// frame. It reports whether a frame ran.
func (t *EngineTester) Pump() bool {
	t.Flush()
	if t.frames.Pending() == 0 {
		return false
	}
	t.clock.AdvanceMillis(t.frames.interval())
	ran := t.frames.Deliver()
	t.Flush()
	return ran
}

// PumpFrames pumps up to n frames and returns how many ran.
func (t *EngineTester) PumpFrames(n int) int {
	ran := 0
	for range n {
		if !t.Pump() {
			break
		}
		ran++
	}
	return ran
}

// PumpAndSettle pumps until no frame is requested, failing after
// maxFrames frames.
func (t *EngineTester) PumpAndSettle(maxFrames int) error {
	for range maxFrames {
		if !t.Pump() {
			return nil
		}
	}
	t.Flush()
	if t.frames.Pending() > 0 {
		return ErrSettleLimit
	}
	return nil
}
