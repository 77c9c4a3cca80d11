package scene

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/image/math/f64"

	"github.com/go-drift/motion/pkg/animation"
	"github.com/go-drift/motion/pkg/engine"
)

func TestMulAppliesRightFirst(t *testing.T) {
	m := Mul(Translate(10, 0), Scale(2))
	if got := Apply(m, f64.Vec2{1, 1}); got != (f64.Vec2{12, 2}) {
		t.Errorf("scale then translate = %v, want [12 2]", got)
	}
	m = Mul(Scale(2), Translate(10, 0))
	if got := Apply(m, f64.Vec2{1, 1}); got != (f64.Vec2{22, 2}) {
		t.Errorf("translate then scale = %v, want [22 2]", got)
	}
	if Mul(Identity, m) != m || Mul(m, Identity) != m {
		t.Error("identity is not neutral")
	}
}

func TestBoxTransform(t *testing.T) {
	if BoxTransform(0, 0) != Identity {
		t.Errorf("start transform = %v", BoxTransform(0, 0))
	}
	want := f64.Aff3{1.5, 0, 200, 0, 1.5, -20}
	if got := BoxTransform(1, 40); got != want {
		t.Errorf("end transform = %v, want %v", got, want)
	}
}

func TestPlay(t *testing.T) {
	res, err := Play(context.Background(), Options{
		Engine:   engine.Options{FrameInterval: time.Millisecond},
		Duration: 30 * time.Millisecond,
		ScrollY:  40,
	})
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if res.Status != animation.StatusFinished {
		t.Errorf("status %v, want finished", res.Status)
	}
	if res.Frames == 0 || res.EventPasses != 1 {
		t.Errorf("frames %d, event passes %d", res.Frames, res.EventPasses)
	}
	want := map[string]any{
		"opacity":   1.0,
		"height":    150.0,
		"transform": []float64{1.5, 0, 200, 0, 1.5, -20},
	}
	if diff := cmp.Diff(want, res.Props); diff != "" {
		t.Errorf("final props (-want +got):\n%s", diff)
	}
}

func TestPlayTimesOut(t *testing.T) {
	// A display link slower than the timeout never finishes the fade.
	_, err := Play(context.Background(), Options{
		Engine:   engine.Options{FrameInterval: time.Hour},
		Duration: time.Second,
		Timeout:  50 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected a timeout")
	}
}
