package testing

import (
	"testing"
	"time"

	"github.com/go-drift/motion/pkg/engine"
)

func TestFakeClock_Advance(t *testing.T) {
	clk := NewFakeClock()
	start := clk.Now()

	if got := clk.Advance(100 * time.Millisecond); got.Sub(start) != 100*time.Millisecond {
		t.Errorf("expected 100ms elapsed, got %v", got.Sub(start))
	}
	clk.AdvanceMillis(2.5)
	if clk.Elapsed() != 102500*time.Microsecond {
		t.Errorf("elapsed = %v, want 102.5ms", clk.Elapsed())
	}
}

func TestFakeClock_Set(t *testing.T) {
	clk := NewFakeClock()
	target := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	clk.Set(target)
	if !clk.Now().Equal(target) {
		t.Errorf("expected %v, got %v", target, clk.Now())
	}
}

func TestEngineTester_PumpAdvancesClock(t *testing.T) {
	tester := NewEngineTesterWithT(t)
	tester.OnRender(func(e *engine.Engine) { e.RequestAnimationFrame(func(float64) {}) })
	before := tester.Clock().Now()
	if !tester.Pump() {
		t.Fatal("no frame")
	}
	interval := float64(DefaultFrameInterval)
	want := time.Duration(interval * float64(time.Millisecond))
	if got := tester.Clock().Now().Sub(before); got != want {
		t.Errorf("clock advanced %v, want one frame (%v)", got, want)
	}
}
