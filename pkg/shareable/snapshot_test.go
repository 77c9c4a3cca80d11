package shareable

import (
	stderrors "errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-drift/motion/pkg/errors"
)

type fakeCell struct {
	id       uint64
	released int
}

func (c *fakeCell) CellID() uint64 { return c.id }
func (c *fakeCell) Release()       { c.released++ }

type fakeFactory struct {
	next  uint64
	cells []*fakeCell
	fail  error
}

func (f *fakeFactory) NewCell(initial *Snapshot) (CellRef, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.next++
	c := &fakeCell{id: f.next}
	f.cells = append(f.cells, c)
	return c, nil
}

type binding struct{ ref CellRef }

type fakeRuntime struct {
	tag      RuntimeTag
	bindings map[uint64]*binding
}

func newFakeRuntime(tag RuntimeTag) *fakeRuntime {
	return &fakeRuntime{tag: tag, bindings: make(map[uint64]*binding)}
}

func (r *fakeRuntime) Tag() RuntimeTag { return r.tag }
func (r *fakeRuntime) Bind(ref CellRef) any {
	b, ok := r.bindings[ref.CellID()]
	if !ok {
		b = &binding{ref: ref}
		r.bindings[ref.CellID()] = b
	}
	return b
}

func mustAdapt(t *testing.T, v Value) *Snapshot {
	t.Helper()
	s, err := Adapt(v, ControlRuntime)
	if err != nil {
		t.Fatalf("Adapt(%v) failed: %v", v, err)
	}
	return s
}

func TestAdaptIsIdempotent(t *testing.T) {
	s := mustAdapt(t, Object{{Name: "x", Value: Number(1)}, {Name: "tags", Value: Array{String("a")}}})
	again, err := Adapt(s, RenderRuntime)
	if err != nil {
		t.Fatal(err)
	}
	if again != s {
		t.Error("adapting a snapshot should return the same instance")
	}
}

func TestAdaptNestedFailureAbortsWholeValue(t *testing.T) {
	v := Array{Number(1), Object{{Name: "bad", Value: String("\xff")}}}
	s, err := Adapt(v, ControlRuntime)
	if s != nil {
		t.Error("no partial snapshot should be returned")
	}
	var ae *errors.AdaptationError
	if !stderrors.As(err, &ae) {
		t.Fatalf("expected AdaptationError, got %v", err)
	}
	if ae.Path != "[1].bad" {
		t.Errorf("Path = %q, want %q", ae.Path, "[1].bad")
	}
}

func TestAdaptRejectsDuplicateFieldsAndNils(t *testing.T) {
	cases := []Value{
		Object{{Name: "a", Value: Null{}}, {Name: "a", Value: Null{}}},
		Array{nil},
		Cell{},
		Closure(nil),
	}
	for _, v := range cases {
		if _, err := Adapt(v, ControlRuntime); err == nil {
			t.Errorf("Adapt(%#v) should fail", v)
		}
	}
}

func TestAdaptForceCell(t *testing.T) {
	f := &fakeFactory{}
	a := &Adapter{Cells: f}
	s, err := a.Adapt(Number(3), ControlRuntime, ForceCell)
	if err != nil {
		t.Fatal(err)
	}
	if s.Kind() != KindCell || s.CellRef().CellID() != 1 {
		t.Fatalf("expected cell snapshot with id 1, got %v %v", s.Kind(), s.CellRef())
	}
	if again, _ := a.Adapt(s, ControlRuntime, ForceCell); again != s {
		t.Error("forcing a snapshot should not mint a new cell")
	}
	if len(f.cells) != 1 {
		t.Errorf("minted %d cells, want 1", len(f.cells))
	}

	if !s.Release() {
		t.Error("last release should report true")
	}
	if f.cells[0].released != 1 {
		t.Errorf("cell released %d times, want 1", f.cells[0].released)
	}
}

func TestAdaptForceCellWithoutFactory(t *testing.T) {
	if _, err := (&Adapter{}).Adapt(Number(1), ControlRuntime, ForceCell); err == nil {
		t.Error("expected an error without a cell factory")
	}
	f := &fakeFactory{fail: stderrors.New("store closed")}
	if _, err := (&Adapter{Cells: f}).Adapt(Number(1), ControlRuntime, ForceCell); err == nil {
		t.Error("expected the factory error to surface")
	}
}

func TestAdaptForceRemoteMintsIDs(t *testing.T) {
	a := &Adapter{}
	r1, _ := a.Adapt(String("a"), ControlRuntime, ForceRemote)
	r2, _ := a.Adapt(String("b"), ControlRuntime, ForceRemote)
	if r1.Remote().ID != 1 || r2.Remote().ID != 2 {
		t.Errorf("remote ids = %d, %d, want 1, 2", r1.Remote().ID, r2.Remote().ID)
	}
	rt := newFakeRuntime(RenderRuntime)
	if r1.Materialize(rt) != r1.Materialize(rt) {
		t.Error("remote handles should materialize by identity")
	}
}

func TestMaterializeCopiesPlainData(t *testing.T) {
	s := mustAdapt(t, Object{
		{Name: "list", Value: Array{Number(1), Bool(true), Null{}}},
		{Name: "name", Value: String("box")},
	})
	rt := newFakeRuntime(RenderRuntime)

	first := s.Materialize(rt).(map[string]any)
	want := map[string]any{"list": []any{1.0, true, nil}, "name": "box"}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Fatalf("Materialize mismatch (-want +got):\n%s", diff)
	}

	first["list"].([]any)[0] = 99.0
	second := s.Materialize(rt).(map[string]any)
	if diff := cmp.Diff(want, second); diff != "" {
		t.Errorf("materialized copies should be independent (-want +got):\n%s", diff)
	}
}

func TestMaterializeCellsKeepIdentity(t *testing.T) {
	c := &fakeCell{id: 4}
	s := mustAdapt(t, Array{Cell{Ref: c}, Cell{Ref: c}})
	rt := newFakeRuntime(RenderRuntime)

	a := s.Materialize(rt).([]any)
	b := s.Materialize(rt).([]any)
	if a[0] != b[0] || a[0] != a[1] {
		t.Error("a cell should materialize to the same binding every time")
	}
	if got := s.Index(0).Materialize(nil); got != CellRef(c) {
		t.Errorf("materializing without a runtime should yield the ref, got %v", got)
	}
}

func TestMaterializeUndefined(t *testing.T) {
	s := mustAdapt(t, Undefined{})
	if _, ok := s.Materialize(nil).(Undefined); !ok {
		t.Error("undefined should materialize to Undefined{}")
	}
}

func TestExtractCellsPreOrderDeduped(t *testing.T) {
	c1, c2, c3 := &fakeCell{id: 10}, &fakeCell{id: 2}, &fakeCell{id: 7}
	s := mustAdapt(t, Object{
		{Name: "a", Value: Cell{Ref: c2}},
		{Name: "b", Value: Array{Cell{Ref: c1}, Object{{Name: "c", Value: Cell{Ref: c2}}}}},
		{Name: "d", Value: Cell{Ref: c3}},
		{Name: "e", Value: Cell{Ref: c1}},
	})
	got := ExtractCells(s)
	want := []uint64{2, 10, 7}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ExtractCells mismatch (-want +got):\n%s", diff)
	}
	if ids := ExtractCells(mustAdapt(t, Number(1))); len(ids) != 0 {
		t.Errorf("plain values have no cells, got %v", ids)
	}
}

func TestFromSortsMapKeys(t *testing.T) {
	v, err := From(map[string]any{"z": 1, "a": []int{1, 2}, "m": nil})
	if err != nil {
		t.Fatal(err)
	}
	obj := v.(Object)
	var names []string
	for _, f := range obj {
		names = append(names, f.Name)
	}
	if diff := cmp.Diff([]string{"a", "m", "z"}, names); diff != "" {
		t.Errorf("field order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Array{Number(1), Number(2)}, obj[0].Value); diff != "" {
		t.Errorf("slice conversion mismatch (-want +got):\n%s", diff)
	}
}

func TestFromRejectsUnsupported(t *testing.T) {
	_, err := From(map[string]any{"ok": 1, "bad": make(chan int)})
	var ae *errors.AdaptationError
	if !stderrors.As(err, &ae) || ae.Path != "bad" {
		t.Fatalf("expected AdaptationError at bad, got %v", err)
	}
	if _, err := From(map[int]string{1: "x"}); err == nil {
		t.Error("non-string map keys should be rejected")
	}
	if _, err := From(uint64(1 << 60)); err == nil {
		t.Error("integers beyond float64 precision should be rejected")
	}
}

func TestFromIntegerPrecision(t *testing.T) {
	type count int64
	tests := []struct {
		name string
		in   any
		want Value
		ok   bool
	}{
		{"int in range", int(1 << 53), Number(1 << 53), true},
		{"negative int in range", int64(-(1 << 53)), Number(-(1 << 53)), true},
		{"int64 too large", int64(1<<53 + 1), nil, false},
		{"int64 too small", int64(-(1<<53 + 1)), nil, false},
		{"int too large", int(1 << 60), nil, false},
		{"uint too large", uint(1 << 60), nil, false},
		{"uint64 too large", uint64(1 << 60), nil, false},
		{"named int64 too large", count(1 << 60), nil, false},
		{"named int64 in range", count(7), Number(7), true},
		{"int8", int8(-3), Number(-3), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := From(tt.in)
			if !tt.ok {
				var ae *errors.AdaptationError
				if !stderrors.As(err, &ae) {
					t.Fatalf("From(%v) = %v, %v; want AdaptationError", tt.in, got, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("From(%v): %v", tt.in, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	a := mustAdapt(t, Object{{Name: "x", Value: Array{Number(1), String("s")}}})
	b := mustAdapt(t, Object{{Name: "x", Value: Array{Number(1), String("s")}}})
	c := mustAdapt(t, Object{{Name: "y", Value: Array{Number(1), String("s")}}})
	if !Equal(a, b) {
		t.Error("structurally equal snapshots should be Equal")
	}
	if Equal(a, c) {
		t.Error("different field names should not be Equal")
	}
	nan := mustAdapt(t, Number(math.NaN()))
	if Equal(nan, nan) {
		t.Error("NaN should never be Equal")
	}
}

func TestSnapshotRefCounting(t *testing.T) {
	s := mustAdapt(t, Number(1))
	s.Retain()
	if s.Refs() != 2 {
		t.Fatalf("Refs = %d, want 2", s.Refs())
	}
	if s.Release() {
		t.Error("first release should not be the last")
	}
	if !s.Release() {
		t.Error("second release should be the last")
	}
}

func TestSyncHolder(t *testing.T) {
	h := NewSyncHolder(mustAdapt(t, Number(1)))
	if got := h.Get(nil); got != 1.0 {
		t.Errorf("Get = %v, want 1", got)
	}
	h.Set(mustAdapt(t, String("two")))
	if got := h.Get(nil); got != "two" {
		t.Errorf("Get = %v, want two", got)
	}
	if h.Snapshot().Kind() != KindString {
		t.Error("Snapshot should return the stored value")
	}
}

func TestRuntimeTagString(t *testing.T) {
	if ControlRuntime.String() != "control" || RenderRuntime.String() != "render" {
		t.Error("unexpected runtime tag names")
	}
	if KindRemote.String() != "remote" {
		t.Error("unexpected kind name")
	}
}
