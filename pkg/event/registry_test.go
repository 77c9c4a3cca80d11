package event

import (
	stderrors "errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-drift/motion/pkg/errors"
)

func collect(t *testing.T) *errors.Collector {
	t.Helper()
	col := errors.NewCollector(0, nil)
	old := errors.SetHandler(col)
	t.Cleanup(func() { errors.SetHandler(old) })
	return col
}

func TestKey(t *testing.T) {
	tests := []struct {
		tag  int64
		name string
		want string
	}{
		{12, "topScroll", "12onScroll"},
		{3, "onPress", "3onPress"},
		{7, "topGestureHandlerEvent", "7onGestureHandlerEvent"},
		{0, "custom", "0custom"},
	}
	for _, tt := range tests {
		if got := Key(tt.tag, tt.name); got != tt.want {
			t.Errorf("Key(%d, %q) = %q, want %q", tt.tag, tt.name, got, tt.want)
		}
	}
}

func TestProcessExactKeyInOrder(t *testing.T) {
	r := NewRegistry()
	var got []string
	add := func(key, name string) {
		r.Register(key, func(Event) error {
			got = append(got, name)
			return nil
		})
	}
	add("1onScroll", "a")
	add("1onScrollEnd", "other")
	add("1onScroll", "b")
	add("1on", "prefix")

	if n := r.Process(Event{Key: "1onScroll"}); n != 2 {
		t.Errorf("Process ran %d handlers, want 2", n)
	}
	if diff := cmp.Diff([]string{"a", "b"}, got); diff != "" {
		t.Errorf("handlers mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessPassesPayload(t *testing.T) {
	r := NewRegistry()
	var seen Event
	r.Register("k", func(ev Event) error {
		seen = ev
		return nil
	})
	ev := Event{Key: "k", Payload: map[string]any{"y": 4.0}, Timestamp: 16}
	r.Process(ev)
	if diff := cmp.Diff(ev, seen); diff != "" {
		t.Errorf("event mismatch (-want +got):\n%s", diff)
	}
}

func TestHandlerIsolation(t *testing.T) {
	col := collect(t)
	r := NewRegistry()
	h1, _ := r.Register("k", func(Event) error { panic("h1") })
	h2Ran := false
	r.Register("k", func(Event) error {
		h2Ran = true
		return stderrors.New("h2 soft")
	})
	h3Ran := false
	r.Register("k", func(Event) error {
		h3Ran = true
		return nil
	})

	r.Process(Event{Key: "k"})
	if !h2Ran || !h3Ran {
		t.Fatal("a failing handler stopped the others")
	}
	reports := col.ErrorsOfKind(errors.KindHandlerInvocation)
	if len(reports) != 2 {
		t.Fatalf("got %d reports, want 2", len(reports))
	}
	var hie *errors.HandlerInvocationError
	if !stderrors.As(reports[0].Err, &hie) || hie.ID != h1 || hie.Key != "k" {
		t.Errorf("unexpected first report %v", reports[0])
	}
}

func TestUnregisterDuringProcess(t *testing.T) {
	r := NewRegistry()
	var later uint64
	var self uint64
	calls := map[string]int{}
	self, _ = r.Register("k", func(Event) error {
		calls["self"]++
		r.Unregister(self)
		r.Unregister(later)
		r.Register("k", func(Event) error {
			calls["added"]++
			return nil
		})
		return nil
	})
	later, _ = r.Register("k", func(Event) error {
		calls["later"]++
		return nil
	})

	r.Process(Event{Key: "k"})
	if diff := cmp.Diff(map[string]int{"self": 1}, calls); diff != "" {
		t.Errorf("first pass calls mismatch (-want +got):\n%s", diff)
	}
	r.Process(Event{Key: "k"})
	if diff := cmp.Diff(map[string]int{"self": 1, "added": 1}, calls); diff != "" {
		t.Errorf("second pass calls mismatch (-want +got):\n%s", diff)
	}
}

func TestIsAnyHandlerWaiting(t *testing.T) {
	r := NewRegistry()
	if r.IsAnyHandlerWaitingForEvent("k") {
		t.Fatal("empty registry reports a waiting handler")
	}
	a, _ := r.Register("k", func(Event) error { return nil })
	b, _ := r.Register("k", func(Event) error { return nil })
	if !r.IsAnyHandlerWaitingForEvent("k") {
		t.Fatal("expected a waiting handler")
	}
	r.Unregister(a)
	if !r.IsAnyHandlerWaitingForEvent("k") {
		t.Fatal("one handler is still registered")
	}
	r.Unregister(b)
	if r.IsAnyHandlerWaitingForEvent("k") {
		t.Error("no handler should be waiting")
	}
	if r.Unregister(b) {
		t.Error("second Unregister should be a no-op")
	}
	if len(r.Counts()) != 0 {
		t.Errorf("Counts = %v, want empty", r.Counts())
	}
}

func TestIsAnyHandlerWaitingConcurrent(t *testing.T) {
	r := NewRegistry()
	r.Register("k", func(Event) error { return nil })

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				if !r.IsAnyHandlerWaitingForEvent("k") {
					t.Error("handler disappeared")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestIDsAreMonotonic(t *testing.T) {
	r := NewRegistry()
	var ids []uint64
	for range 3 {
		id, _ := r.Register("k", func(Event) error { return nil })
		ids = append(ids, id)
		r.Unregister(id)
	}
	if diff := cmp.Diff([]uint64{1, 2, 3}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestRegisterWithID(t *testing.T) {
	r := NewRegistry()
	noop := func(Event) error { return nil }
	if err := r.RegisterWithID(4, "k", noop); err == nil {
		t.Error("unreserved id accepted")
	}
	id := r.ReserveID()
	if err := r.RegisterWithID(id, "k", noop); err != nil {
		t.Fatalf("RegisterWithID: %v", err)
	}
	if err := r.RegisterWithID(id, "k", noop); err == nil {
		t.Error("duplicate id accepted")
	}
	if err := r.RegisterWithID(r.ReserveID(), "k", nil); err == nil {
		t.Error("nil handler accepted")
	}
}

func TestClose(t *testing.T) {
	r := NewRegistry()
	r.Register("a", func(Event) error { return nil })
	r.Register("b", func(Event) error { return nil })
	r.Close()
	if r.Len() != 0 || r.IsAnyHandlerWaitingForEvent("a") {
		t.Error("Close left handlers behind")
	}
}
