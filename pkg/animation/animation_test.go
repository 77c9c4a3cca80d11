package animation

import (
	"errors"
	"math"
	"testing"
	"time"

	"golang.org/x/image/math/f64"
)

// fakeFrames delivers frames on demand, 16ms apart.
type fakeFrames struct {
	pending []func(float64)
	ts      float64
}

func (f *fakeFrames) RequestAnimationFrame(cb func(float64)) {
	f.pending = append(f.pending, cb)
}

func (f *fakeFrames) pump(max int) int {
	n := 0
	for n < max && len(f.pending) > 0 {
		batch := f.pending
		f.pending = nil
		f.ts += 16
		for _, cb := range batch {
			cb(f.ts)
		}
		n++
	}
	return n
}

type fakeTarget struct {
	v      float64
	writes []float64
	err    error
}

func (t *fakeTarget) Float() float64 { return t.v }

func (t *fakeTarget) Set(v any) error {
	if t.err != nil {
		return t.err
	}
	t.v = v.(float64)
	t.writes = append(t.writes, t.v)
	return nil
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestCurvesEndpoints(t *testing.T) {
	curves := map[string]Curve{
		"linear":    Linear,
		"ease":      Ease,
		"easeIn":    EaseIn,
		"easeOut":   EaseOut,
		"easeInOut": EaseInOut,
		"steps":     Steps(4),
		"reversed":  Reversed(EaseIn),
	}
	for name, c := range curves {
		if c(0) != 0 || c(1) != 1 {
			t.Errorf("%s: endpoints (%v, %v), want (0, 1)", name, c(0), c(1))
		}
	}
}

func TestCubicBezier(t *testing.T) {
	c := CubicBezier(0.4, 0.0, 0.2, 1.0)
	if got := c(0.5); math.Abs(got-0.78) > 0.01 {
		t.Errorf("c(0.5) = %v, want ~0.78", got)
	}
	// A linear control polygon is the identity.
	id := CubicBezier(1.0/3, 1.0/3, 2.0/3, 2.0/3)
	for _, x := range []float64{0.1, 0.25, 0.5, 0.9} {
		if !near(id(x), x) {
			t.Errorf("identity(%v) = %v", x, id(x))
		}
	}
	prev := 0.0
	for i := 1; i <= 100; i++ {
		v := EaseInOut(float64(i) / 100)
		if v < prev {
			t.Fatalf("EaseInOut not monotonic at %d", i)
		}
		prev = v
	}
}

func TestSteps(t *testing.T) {
	s := Steps(4)
	for _, tc := range []struct{ in, want float64 }{
		{0.1, 0}, {0.25, 0.25}, {0.6, 0.5}, {0.99, 0.75},
	} {
		if got := s(tc.in); got != tc.want {
			t.Errorf("Steps(4)(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestTweens(t *testing.T) {
	if got := TweenFloat64(10, 20).Evaluate(0.5); got != 15 {
		t.Errorf("float tween = %v", got)
	}
	if got := TweenVec2(f64.Vec2{0, 0}, f64.Vec2{100, 50}).Evaluate(1); got != (f64.Vec2{100, 50}) {
		t.Errorf("vec2 tween = %v", got)
	}
	move := TweenAff3(f64.Aff3{1, 0, 0, 0, 1, 0}, f64.Aff3{2, 0, 10, 0, 2, 20})
	if got := move.Evaluate(0.5); got != (f64.Aff3{1.5, 0, 5, 0, 1.5, 10}) {
		t.Errorf("aff3 tween = %v", got)
	}
	if got := TweenColor(0xFF000000, 0xFFFFFFFF).Evaluate(0.5); got != 0xFF808080 {
		t.Errorf("color tween = %#x, want 0xff808080", got)
	}
	tw := &Tween[string]{Begin: "a", End: "b"}
	if tw.Evaluate(0) != "b" {
		t.Error("tween without Lerp should yield End")
	}
}

func TestTiming(t *testing.T) {
	a := &Timing{To: 100, Duration: 100 * time.Millisecond, Curve: Linear}
	a.Start(0, 1000)
	if v, done := a.Step(1000); v != 0 || done {
		t.Errorf("t=0: %v %v", v, done)
	}
	if v, done := a.Step(1050); !near(v, 50) || done {
		t.Errorf("t=50: %v %v", v, done)
	}
	if v, done := a.Step(1100); v != 100 || !done {
		t.Errorf("t=100: %v %v", v, done)
	}

	zero := &Timing{To: 7}
	zero.Start(3, 0)
	if v, done := zero.Step(0); v != 7 || !done {
		t.Errorf("zero duration: %v %v", v, done)
	}
}

func TestDecay(t *testing.T) {
	a := &Decay{Velocity: 1000}
	a.Start(0, 0)
	rest := a.Rest(0)
	var v float64
	done := false
	prev := 0.0
	for ts := 16.0; !done && ts < 20000; ts += 16 {
		v, done = a.Step(ts)
		if v < prev {
			t.Fatalf("decay moved backwards at %v", ts)
		}
		prev = v
	}
	if !done {
		t.Fatal("decay never stopped")
	}
	if v > rest || rest-v > 1 {
		t.Errorf("stopped at %v, rest %v", v, rest)
	}

	clamped := &Decay{Velocity: -2000}
	clamped.Clamp.Min, clamped.Clamp.Max = -50, 50
	clamped.Start(0, 0)
	v, done = clamped.Step(100)
	if v != -50 || !done {
		t.Errorf("clamped decay = %v %v, want -50 true", v, done)
	}
}

func TestSpringSettles(t *testing.T) {
	a := &Spring{To: 300, Velocity: 500}
	a.Start(0, 0)
	overshoot := false
	var v float64
	done := false
	for ts := 16.0; !done && ts < 30000; ts += 16 {
		v, done = a.Step(ts)
		if v > 300 {
			overshoot = true
		}
	}
	if !done || v != 300 {
		t.Fatalf("spring ended at %v done=%v", v, done)
	}
	if !overshoot {
		t.Error("an underdamped spring should overshoot")
	}
}

func TestControllerRunsToCompletion(t *testing.T) {
	frames := &fakeFrames{}
	target := &fakeTarget{v: 0}
	c := NewController(frames, target)

	var statuses []Status
	c.AddStatusListener(func(s Status) { statuses = append(statuses, s) })
	var final Status
	c.Animate(&Timing{To: 1, Duration: 64 * time.Millisecond, Curve: Linear}, func(s Status) { final = s })

	if !c.IsAnimating() {
		t.Fatal("controller should be running")
	}
	n := frames.pump(100)
	if n != 5 {
		t.Errorf("ran %d frames, want 5", n)
	}
	if final != StatusFinished || c.Status() != StatusFinished {
		t.Errorf("final = %v, status = %v", final, c.Status())
	}
	want := []float64{0, 0.25, 0.5, 0.75, 1}
	if len(target.writes) != len(want) {
		t.Fatalf("writes = %v, want %v", target.writes, want)
	}
	for i := range want {
		if !near(target.writes[i], want[i]) {
			t.Fatalf("writes = %v, want %v", target.writes, want)
		}
	}
	if len(statuses) != 2 || statuses[0] != StatusRunning || statuses[1] != StatusFinished {
		t.Errorf("statuses = %v", statuses)
	}
	if c.Value() != 1 || c.Frames() != 5 {
		t.Errorf("value %v frames %d", c.Value(), c.Frames())
	}
}

func TestControllerReplaceCancels(t *testing.T) {
	frames := &fakeFrames{}
	target := &fakeTarget{v: 10}
	c := NewController(frames, target)

	var first Status
	c.Animate(&Timing{To: 100, Duration: time.Second}, func(s Status) { first = s })
	frames.pump(2)

	var second Status
	c.Animate(&Timing{To: 0, Duration: 32 * time.Millisecond, Curve: Linear}, func(s Status) { second = s })
	if first != StatusCanceled {
		t.Errorf("replaced run ended %v, want canceled", first)
	}
	frames.pump(100)
	if second != StatusFinished || target.v != 0 {
		t.Errorf("second run %v, value %v", second, target.v)
	}
	if got := len(target.writes); got != 5 {
		t.Errorf("writes = %d, want 2 from the first run and 3 from the second", got)
	}
}

func TestControllerStop(t *testing.T) {
	frames := &fakeFrames{}
	target := &fakeTarget{}
	c := NewController(frames, target)
	c.Animate(&Decay{Velocity: 1000}, nil)
	frames.pump(3)
	c.Stop()
	writes := len(target.writes)
	frames.pump(10)
	if len(target.writes) != writes {
		t.Error("stopped controller kept writing")
	}
	if c.Status() != StatusCanceled {
		t.Errorf("status = %v", c.Status())
	}
	c.Stop()
}

func TestControllerTargetFailureCancels(t *testing.T) {
	frames := &fakeFrames{}
	target := &fakeTarget{err: errors.New("gone")}
	c := NewController(frames, target)
	var final Status
	c.Animate(&Timing{To: 1, Duration: time.Second}, func(s Status) { final = s })
	frames.pump(10)
	if final != StatusCanceled {
		t.Errorf("final = %v, want canceled", final)
	}
}

func TestStatusString(t *testing.T) {
	if StatusRunning.String() != "running" || Status(9).String() != "Status(9)" {
		t.Error("unexpected status strings")
	}
}
