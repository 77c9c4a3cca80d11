package cell

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-drift/motion/pkg/errors"
	"github.com/go-drift/motion/pkg/shareable"
)

type dirtyRecorder struct {
	marks []uint64
}

func (d *dirtyRecorder) MarkDirty(id uint64) { d.marks = append(d.marks, id) }

type queuePoster struct {
	queue  []func()
	closed bool
}

func (q *queuePoster) ScheduleOnRender(fn func()) bool {
	if q.closed {
		return false
	}
	q.queue = append(q.queue, fn)
	return true
}

func (q *queuePoster) drain() {
	for len(q.queue) > 0 {
		fn := q.queue[0]
		q.queue = q.queue[1:]
		fn()
	}
}

func num(t *testing.T, n float64) *shareable.Snapshot {
	t.Helper()
	s, err := shareable.Adapt(shareable.Number(n), shareable.RenderRuntime)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestStoreIDsAreMonotonic(t *testing.T) {
	s := NewStore(nil, nil)
	a, _ := s.Create(num(t, 1))
	b, _ := s.Create(num(t, 2))
	a.Release()
	c, _ := s.Create(num(t, 3))
	if a.CellID() != 1 || b.CellID() != 2 || c.CellID() != 3 {
		t.Errorf("ids = %d, %d, %d, want 1, 2, 3", a.CellID(), b.CellID(), c.CellID())
	}
	if _, ok := s.Get(1); ok {
		t.Error("released cell should leave the store")
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
}

func TestWriteNotifiesSubscribersWithoutShortCircuit(t *testing.T) {
	rec := &dirtyRecorder{}
	s := NewStore(rec, nil)
	c, _ := s.Create(num(t, 5))
	c.Subscribe(3)
	c.Subscribe(3)
	c.Subscribe(1)

	c.Write(num(t, 5))
	if len(rec.marks) != 2 {
		t.Fatalf("an equal write must still dirty subscribers, got marks %v", rec.marks)
	}
	if c.Writes() != 1 {
		t.Errorf("Writes = %d, want 1", c.Writes())
	}
	if diff := cmp.Diff([]uint64{1, 3}, c.Subscribers()); diff != "" {
		t.Errorf("Subscribers mismatch (-want +got):\n%s", diff)
	}

	c.Unsubscribe(3)
	c.Unsubscribe(3)
	rec.marks = nil
	c.Write(num(t, 6))
	if diff := cmp.Diff([]uint64{1}, rec.marks); diff != "" {
		t.Errorf("marks mismatch (-want +got):\n%s", diff)
	}
}

func TestShortCircuitEqualWrites(t *testing.T) {
	rec := &dirtyRecorder{}
	s := NewStore(rec, nil)
	s.ShortCircuitEqualWrites = true
	c, _ := s.Create(num(t, 5))
	c.Subscribe(1)
	c.Write(num(t, 5))
	if len(rec.marks) != 0 {
		t.Errorf("equal write should be dropped, got marks %v", rec.marks)
	}
	c.Write(num(t, 7))
	if len(rec.marks) != 1 {
		t.Errorf("different write should dirty, got marks %v", rec.marks)
	}
}

func TestReadFromControlSeesPublishedValue(t *testing.T) {
	s := NewStore(nil, nil)
	c, _ := s.Create(num(t, 1))
	if c.Read(shareable.ControlRuntime).Number() != 1 {
		t.Fatal("control should see the initial value")
	}
	c.Write(num(t, 2))
	if got := c.Read(shareable.ControlRuntime).Number(); got != 2 {
		t.Errorf("control read = %v, want 2", got)
	}
	if got := c.Read(shareable.RenderRuntime).Number(); got != 2 {
		t.Errorf("render read = %v, want 2", got)
	}
}

func TestWriteAfterRemovalIsStale(t *testing.T) {
	col := errors.NewCollector(0, nil)
	old := errors.SetHandler(col)
	defer errors.SetHandler(old)

	s := NewStore(nil, nil)
	c, _ := s.Create(num(t, 1))
	c.Release()
	c.Write(num(t, 2))
	if c.Value().Number() != 1 {
		t.Error("write to a removed cell must be a no-op")
	}
	if len(col.ErrorsOfKind(errors.KindStaleHandle)) != 1 {
		t.Error("write to a removed cell should be reported as stale")
	}
}

func TestStoreClose(t *testing.T) {
	s := NewStore(nil, nil)
	c, _ := s.Create(num(t, 1))
	s.Close()
	if !c.Removed() {
		t.Error("Close should remove cells")
	}
	if _, err := s.Create(num(t, 1)); err != ErrStoreClosed {
		t.Errorf("Create after Close = %v, want ErrStoreClosed", err)
	}
}

func TestAdaptForceCellUsesStore(t *testing.T) {
	s := NewStore(nil, nil)
	a := &shareable.Adapter{Cells: s}
	snap, err := a.Adapt(shareable.Number(4), shareable.ControlRuntime, shareable.ForceCell)
	if err != nil {
		t.Fatal(err)
	}
	c, ok := s.Get(snap.CellRef().CellID())
	if !ok || c.Value().Number() != 4 {
		t.Fatal("ForceCell should create a cell holding the value")
	}
	snap.Release()
	if !c.Removed() {
		t.Error("releasing the last snapshot reference should release the host hold")
	}
}

func TestBindingIdentityPerRuntime(t *testing.T) {
	s := NewStore(nil, nil)
	c, _ := s.Create(num(t, 1))
	render := NewRuntime(shareable.RenderRuntime, s)
	control := NewRuntime(shareable.ControlRuntime, s)

	if render.Bind(c) != render.Bind(c) {
		t.Error("a runtime should hand out one binding per cell")
	}
	if render.Bind(c) == control.Bind(c) {
		t.Error("runtimes should not share bindings")
	}
	b := render.Binding(c)
	if render.Bind(b) != any(b) {
		t.Error("binding a binding should resolve to the same binding")
	}
	if control.BindingByID(99) != nil {
		t.Error("unknown ids should not bind")
	}
}

func TestBindingSetFromRenderIsImmediate(t *testing.T) {
	rec := &dirtyRecorder{}
	s := NewStore(rec, nil)
	c, _ := s.Create(num(t, 1))
	c.Subscribe(1)
	b := NewRuntime(shareable.RenderRuntime, s).Binding(c)
	if err := b.Set(10); err != nil {
		t.Fatal(err)
	}
	if b.Get() != 10.0 || b.Float() != 10 {
		t.Errorf("Get = %v, want 10", b.Get())
	}
	if len(rec.marks) != 1 {
		t.Error("render-side Set should dirty subscribers")
	}
}

func TestBindingSetFromControlIsPosted(t *testing.T) {
	q := &queuePoster{}
	s := NewStore(nil, q)
	c, _ := s.Create(num(t, 1))
	b := NewRuntime(shareable.ControlRuntime, s).Binding(c)

	if err := b.Set(map[string]any{"x": 2}); err != nil {
		t.Fatal(err)
	}
	if b.Get() != 1.0 {
		t.Errorf("control write should not be visible before the render queue runs, got %v", b.Get())
	}
	q.drain()
	want := map[string]any{"x": 2.0}
	if diff := cmp.Diff(want, b.Get()); diff != "" {
		t.Errorf("value after drain mismatch (-want +got):\n%s", diff)
	}
}

func TestBindingSetWithoutPoster(t *testing.T) {
	s := NewStore(nil, nil)
	c, _ := s.Create(num(t, 1))
	b := NewRuntime(shareable.ControlRuntime, s).Binding(c)
	if err := b.Set(2); err == nil {
		t.Error("control Set without a poster should fail")
	}
	if err := b.Set(make(chan int)); err == nil {
		t.Error("unadaptable values should fail")
	}
}

func TestRuntimeForget(t *testing.T) {
	s := NewStore(nil, nil)
	c, _ := s.Create(num(t, 1))
	rt := NewRuntime(shareable.RenderRuntime, s)
	rt.Binding(c)
	c.Release()
	rt.Forget()
	if rt.Bind(c) != nil {
		t.Error("removed cells should not bind")
	}
}
