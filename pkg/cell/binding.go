package cell

import (
	"fmt"
	"sync"

	"github.com/go-drift/motion/pkg/errors"
	"github.com/go-drift/motion/pkg/shareable"
)

// Runtime is the materialization context of one side of the engine. It
// keeps one Binding per cell so that a cell always materializes to the same
// object within a runtime.
type Runtime struct {
	tag   shareable.RuntimeTag
	store *Store

	mu       sync.Mutex
	bindings map[uint64]*Binding
}

// NewRuntime creates a runtime over store.
func NewRuntime(tag shareable.RuntimeTag, store *Store) *Runtime {
	return &Runtime{
		tag:      tag,
		store:    store,
		bindings: make(map[uint64]*Binding),
	}
}

// Tag implements shareable.Runtime.
func (r *Runtime) Tag() shareable.RuntimeTag { return r.tag }

// Store returns the cell store the runtime binds against.
func (r *Runtime) Store() *Store { return r.store }

// Bind implements shareable.Runtime. It returns a *Binding, or nil when the
// referenced cell no longer exists.
func (r *Runtime) Bind(ref shareable.CellRef) any {
	b := r.Binding(ref)
	if b == nil {
		return nil
	}
	return b
}

// Binding returns the runtime's binding for ref.
func (r *Runtime) Binding(ref shareable.CellRef) *Binding {
	id := ref.CellID()
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.bindings[id]; ok {
		return b
	}
	c, ok := ref.(*Cell)
	if !ok || c.store != r.store {
		if c, ok = r.store.Get(id); !ok {
			return nil
		}
	}
	if c.Removed() {
		return nil
	}
	b := &Binding{cell: c, rt: r}
	r.bindings[id] = b
	return b
}

// BindingByID returns the binding for a cell id, or nil.
func (r *Runtime) BindingByID(id uint64) *Binding {
	c, ok := r.store.Get(id)
	if !ok {
		return nil
	}
	return r.Binding(c)
}

// Forget drops cached bindings for cells that left the store.
func (r *Runtime) Forget() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, b := range r.bindings {
		if b.cell.Removed() {
			delete(r.bindings, id)
		}
	}
}

// Binding is a live view of a cell from one runtime. Get and Set forward to
// the cell; Set from the control runtime is posted to the render thread.
type Binding struct {
	cell *Cell
	rt   *Runtime
}

// CellID implements shareable.CellRef, so a binding can be stored inside
// another value and still travel by reference.
func (b *Binding) CellID() uint64 { return b.cell.id }

// Cell returns the underlying cell.
func (b *Binding) Cell() *Cell { return b.cell }

// Snapshot returns the cell value as seen from the binding's runtime.
func (b *Binding) Snapshot() *shareable.Snapshot {
	return b.cell.Read(b.rt.tag)
}

// Get materializes the cell value into the binding's runtime.
func (b *Binding) Get() any {
	s := b.Snapshot()
	if s == nil {
		return nil
	}
	return s.Materialize(b.rt)
}

// Float returns the value as a float64, or 0 when it is not a number.
func (b *Binding) Float() float64 {
	s := b.Snapshot()
	if s == nil || s.Kind() != shareable.KindNumber {
		return 0
	}
	return s.Number()
}

// Set adapts v and writes it to the cell. On the render runtime the write is
// immediate; elsewhere it is posted to the render thread and becomes
// visible to control readers once it has run there.
func (b *Binding) Set(v any) error {
	val, err := shareable.From(v)
	if err != nil {
		return err
	}
	snap, err := shareable.Adapt(val, b.rt.tag)
	if err != nil {
		return err
	}
	if b.rt.tag == shareable.RenderRuntime {
		b.cell.Write(snap)
		return nil
	}
	p := b.rt.store.poster
	if p == nil {
		return fmt.Errorf("cell %d: no render queue to post the write to", b.cell.id)
	}
	c := b.cell
	if !p.ScheduleOnRender(func() { c.Write(snap) }) {
		errors.ReportStale("cell.Set", "cell", c.id)
	}
	return nil
}
