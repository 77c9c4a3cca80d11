package testing

import (
	"errors"
	"testing"
)

func TestManualFramesDeliverInOrder(t *testing.T) {
	m := NewManualFrames()
	var got []float64
	m.RequestNextFrame(func(ts float64) { got = append(got, ts) })
	m.RequestNextFrame(func(ts float64) { got = append(got, ts*10) })

	if n := m.Pump(10); n != 2 {
		t.Fatalf("Pump delivered %d frames, want 2", n)
	}
	if len(got) != 2 || got[0] != DefaultFrameInterval || got[1] != 2*DefaultFrameInterval*10 {
		t.Errorf("unexpected timestamps %v", got)
	}
	if m.Deliver() {
		t.Error("Deliver with nothing pending should return false")
	}
}

func TestManualFramesFailure(t *testing.T) {
	m := NewManualFrames()
	m.FailWith(errors.New("no display"))
	if err := m.RequestNextFrame(func(float64) {}); err == nil {
		t.Fatal("expected request failure")
	}
	if m.Calls() != 1 || m.Pending() != 0 {
		t.Errorf("calls=%d pending=%d", m.Calls(), m.Pending())
	}
	m.FailWith(nil)
	m.RequestNextFrame(func(float64) {})
	if m.Drop() != 1 || m.Pending() != 0 {
		t.Error("Drop should discard the outstanding request")
	}
}
