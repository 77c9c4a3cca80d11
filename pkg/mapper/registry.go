package mapper

import (
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/go-drift/motion/pkg/cell"
	"github.com/go-drift/motion/pkg/errors"
)

// Registry owns the mappers of one render runtime. Everything except
// ReserveID must be called on the render thread.
type Registry struct {
	// OnDirty is called when a mapper becomes dirty or a continuous mapper
	// is registered, so the host can request a frame.
	OnDirty func()

	rt     *cell.Runtime
	nextID atomic.Uint64

	mappers    map[uint64]*Mapper
	order      []uint64
	dirty      map[uint64]struct{}
	continuous int
	executing  bool
}

// NewRegistry creates a registry bound to the render runtime rt and
// installs it as the dirty-mark receiver of the runtime's store.
func NewRegistry(rt *cell.Runtime) *Registry {
	r := &Registry{
		rt:      rt,
		mappers: make(map[uint64]*Mapper),
		dirty:   make(map[uint64]struct{}),
	}
	rt.Store().SetNotifier(r)
	return r
}

// ReserveID allocates the next mapper handle without registering anything.
// Safe from any goroutine; used by callers that post registration to the
// render thread but need the handle immediately.
func (r *Registry) ReserveID() uint64 {
	return r.nextID.Add(1)
}

// Start registers a mapper under a fresh handle and runs it once.
func (r *Registry) Start(updater Updater, inputs, outputs []uint64, fast *FastPath) (uint64, error) {
	id := r.ReserveID()
	if err := r.StartWithID(id, updater, inputs, outputs, fast); err != nil {
		return 0, err
	}
	return id, nil
}

// StartWithID registers a mapper under a handle obtained from ReserveID,
// subscribes it to its inputs and runs the updater once before returning.
// Nothing is registered when an input or output cell does not exist.
func (r *Registry) StartWithID(id uint64, updater Updater, inputs, outputs []uint64, fast *FastPath) error {
	if updater == nil {
		return fmt.Errorf("mapper %d: nil updater", id)
	}
	if id == 0 || id > r.nextID.Load() {
		return fmt.Errorf("mapper %d: id was not reserved", id)
	}
	if _, ok := r.mappers[id]; ok {
		return fmt.Errorf("mapper %d: already registered", id)
	}
	store := r.rt.Store()
	cells := make([]*cell.Cell, 0, len(inputs)+len(outputs))
	for _, cid := range slices.Concat(inputs, outputs) {
		c, ok := store.Get(cid)
		if !ok {
			return &errors.StaleHandleError{Unit: "cell", ID: cid}
		}
		cells = append(cells, c)
	}

	m := &Mapper{
		id:      id,
		updater: updater,
		inputs:  slices.Clone(inputs),
		outputs: slices.Clone(outputs),
		fast:    fast,
	}
	for _, c := range cells {
		c.Retain()
	}
	for _, c := range cells[:len(inputs)] {
		c.Subscribe(id)
	}
	r.mappers[id] = m
	r.order = append(r.order, id)
	if m.Continuous() {
		r.continuous++
	}

	r.run(m)

	if m.Continuous() && r.OnDirty != nil {
		r.OnDirty()
	}
	return nil
}

// Stop unregisters a mapper. Unknown or already stopped handles are
// ignored. Safe to call from inside an updater, including the mapper's own.
func (r *Registry) Stop(id uint64) bool {
	m, ok := r.mappers[id]
	if !ok {
		return false
	}
	delete(r.mappers, id)
	delete(r.dirty, id)
	if i := slices.Index(r.order, id); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
	if m.Continuous() {
		r.continuous--
	}
	store := r.rt.Store()
	for _, cid := range m.inputs {
		if c, ok := store.Get(cid); ok {
			c.Unsubscribe(id)
		}
	}
	for _, cid := range slices.Concat(m.inputs, m.outputs) {
		if c, ok := store.Get(cid); ok {
			c.Release()
		}
	}
	return true
}

// MarkDirty implements cell.Notifier.
func (r *Registry) MarkDirty(id uint64) {
	if _, ok := r.mappers[id]; !ok {
		return
	}
	if _, ok := r.dirty[id]; ok {
		return
	}
	r.dirty[id] = struct{}{}
	if r.OnDirty != nil {
		r.OnDirty()
	}
}

// Execute runs every dirty mapper once, in registration order, and returns
// how many ran. Frame passes also run continuous mappers. Mappers dirtied
// while the pass runs wait for the next call, and mappers stopped during
// the pass are skipped.
func (r *Registry) Execute(pass Pass) int {
	if r.executing {
		return 0
	}
	dirty := r.dirty
	if len(dirty) == 0 && (pass != PassFrame || r.continuous == 0) {
		return 0
	}
	r.dirty = make(map[uint64]struct{})
	order := slices.Clone(r.order)

	r.executing = true
	defer func() { r.executing = false }()

	ran := 0
	for _, id := range order {
		m, ok := r.mappers[id]
		if !ok {
			continue
		}
		if _, isDirty := dirty[id]; !isDirty && !(pass == PassFrame && m.Continuous()) {
			continue
		}
		r.run(m)
		ran++
	}
	return ran
}

func (r *Registry) run(m *Mapper) {
	inputs := make([]any, len(m.inputs))
	for i, cid := range m.inputs {
		if b := r.rt.BindingByID(cid); b != nil {
			inputs[i] = b.Get()
		}
	}
	outputs := make([]*cell.Binding, len(m.outputs))
	for i, cid := range m.outputs {
		outputs[i] = r.rt.BindingByID(cid)
	}

	m.runs++
	var result any
	ok := errors.Invoke("mapper.Execute", "mapper", m.id, "", func() error {
		var err error
		result, err = m.updater(inputs, outputs)
		return err
	})
	if !ok || m.fast == nil {
		return
	}
	for _, apply := range m.fast.Apply {
		if apply == nil {
			continue
		}
		errors.Invoke("mapper.FastPath", "mapper fast path", m.id, "", func() error {
			return apply(result)
		})
	}
}

// NeedRunOnRender reports whether any registered mapper is continuous.
func (r *Registry) NeedRunOnRender() bool {
	return r.continuous > 0
}

// HasDirty reports whether any mapper is waiting for the next pass.
func (r *Registry) HasDirty() bool {
	return len(r.dirty) > 0
}

// Get returns a registered mapper.
func (r *Registry) Get(id uint64) (*Mapper, bool) {
	m, ok := r.mappers[id]
	return m, ok
}

// Len returns the number of registered mappers.
func (r *Registry) Len() int {
	return len(r.mappers)
}

// Stats describes every registered mapper in registration order.
func (r *Registry) Stats() []Info {
	infos := make([]Info, 0, len(r.order))
	for _, id := range r.order {
		m := r.mappers[id]
		info := Info{
			ID:         id,
			Inputs:     m.Inputs(),
			Outputs:    m.Outputs(),
			Runs:       m.runs,
			Continuous: m.Continuous(),
		}
		if m.fast != nil {
			info.Level = m.fast.Level
			info.FastPaths = len(m.fast.Apply)
		}
		_, info.Dirty = r.dirty[id]
		infos = append(infos, info)
	}
	return infos
}

// Close stops every mapper.
func (r *Registry) Close() {
	for _, id := range slices.Clone(r.order) {
		r.Stop(id)
	}
}
