package shareable

import (
	"math"
	"sync/atomic"
	"unicode/utf8"

	"github.com/go-drift/motion/pkg/errors"
)

// Snapshot is the immutable, transferable form of a value. Composite
// snapshots own their children; cell snapshots reference a live cell.
//
// Snapshots are reference counted. The creating runtime holds the first
// reference; every runtime that keeps a materialized copy should Retain the
// snapshot and Release it when done. When the count drops to zero the
// release hook runs (cell snapshots use it to drop their hold on the cell).
type Snapshot struct {
	kind   Kind
	owner  RuntimeTag
	b      bool
	n      float64
	s      string
	items  []*Snapshot
	keys   []string
	cell   CellRef
	fn     Closure
	remote *Remote

	refs    atomic.Int64
	onFree  func()
	release atomic.Bool
}

func (s *Snapshot) valueKind() Kind {
	if s == nil {
		return KindUndefined
	}
	return s.kind
}

func newSnapshot(kind Kind, owner RuntimeTag) *Snapshot {
	s := &Snapshot{kind: kind, owner: owner}
	s.refs.Store(1)
	return s
}

// Kind returns the variant held by the snapshot.
func (s *Snapshot) Kind() Kind { return s.kind }

// Owner returns the runtime that created the snapshot.
func (s *Snapshot) Owner() RuntimeTag { return s.owner }

// Bool returns the boolean payload.
func (s *Snapshot) Bool() bool { return s.b }

// Number returns the numeric payload.
func (s *Snapshot) Number() float64 { return s.n }

// Str returns the string payload.
func (s *Snapshot) Str() string { return s.s }

// Len returns the number of array items or object fields.
func (s *Snapshot) Len() int { return len(s.items) }

// Index returns the i-th array item or object field value.
func (s *Snapshot) Index(i int) *Snapshot { return s.items[i] }

// Keys returns the object field names in declaration order.
func (s *Snapshot) Keys() []string { return append([]string(nil), s.keys...) }

// Field returns the named object field, or nil.
func (s *Snapshot) Field(name string) *Snapshot {
	for i, k := range s.keys {
		if k == name {
			return s.items[i]
		}
	}
	return nil
}

// CellRef returns the referenced cell for cell snapshots.
func (s *Snapshot) CellRef() CellRef { return s.cell }

// Closure returns the closure payload.
func (s *Snapshot) Closure() Closure { return s.fn }

// Remote returns the remote handle payload.
func (s *Snapshot) Remote() *Remote { return s.remote }

// Retain adds a reference and returns s.
func (s *Snapshot) Retain() *Snapshot {
	s.refs.Add(1)
	return s
}

// Release drops a reference. It returns true when this was the last one.
func (s *Snapshot) Release() bool {
	if s.refs.Add(-1) != 0 {
		return false
	}
	if s.release.CompareAndSwap(false, true) && s.onFree != nil {
		s.onFree()
	}
	return true
}

// Refs returns the current reference count.
func (s *Snapshot) Refs() int64 { return s.refs.Load() }

// Force asks Adapt to wrap the value in a specific shareable kind.
type Force int

const (
	// ForceNone adapts the value according to its own shape.
	ForceNone Force = iota
	// ForceCell mints a new reactive cell holding the value.
	ForceCell
	// ForceRemote mints a remote handle around the value.
	ForceRemote
)

// CellFactory mints reactive cells for ForceCell adaptations.
type CellFactory interface {
	NewCell(initial *Snapshot) (CellRef, error)
}

// releaser is implemented by cells that track host references.
type releaser interface {
	Release()
}

// Adapter converts values into snapshots. The zero value adapts plain data;
// Cells must be set to support ForceCell.
type Adapter struct {
	Cells CellFactory

	nextRemote atomic.Uint64
}

var defaultAdapter Adapter

// Adapt converts v with a zero Adapter.
func Adapt(v Value, owner RuntimeTag) (*Snapshot, error) {
	return defaultAdapter.Adapt(v, owner, ForceNone)
}

// Adapt converts v into a snapshot owned by owner. Composite values are
// converted eagerly; a failure anywhere aborts the whole conversion and
// returns an *errors.AdaptationError. A value that already is a *Snapshot is
// returned unchanged.
func (a *Adapter) Adapt(v Value, owner RuntimeTag, force Force) (*Snapshot, error) {
	if snap, ok := v.(*Snapshot); ok {
		if snap == nil {
			return nil, &errors.AdaptationError{Got: v, Reason: "nil snapshot"}
		}
		return snap, nil
	}
	if force == ForceCell {
		if c, ok := v.(Cell); ok {
			return a.adapt(c, owner, "")
		}
	}
	snap, err := a.adapt(v, owner, "")
	if err != nil {
		return nil, err
	}
	switch force {
	case ForceCell:
		if a.Cells == nil {
			return nil, &errors.AdaptationError{Got: v, Reason: "no cell factory configured"}
		}
		ref, err := a.Cells.NewCell(snap)
		if err != nil {
			return nil, &errors.AdaptationError{Got: v, Reason: err.Error()}
		}
		out := newSnapshot(KindCell, owner)
		out.cell = ref
		if r, ok := ref.(releaser); ok {
			out.onFree = r.Release
		}
		return out, nil
	case ForceRemote:
		out := newSnapshot(KindRemote, owner)
		out.remote = &Remote{ID: a.nextRemote.Add(1), Payload: snap}
		return out, nil
	}
	return snap, nil
}

func (a *Adapter) adapt(v Value, owner RuntimeTag, path string) (*Snapshot, error) {
	switch val := v.(type) {
	case nil:
		return nil, &errors.AdaptationError{Path: path, Got: v, Reason: "nil value"}
	case *Snapshot:
		if val == nil {
			return nil, &errors.AdaptationError{Path: path, Got: v, Reason: "nil snapshot"}
		}
		return val, nil
	case Undefined:
		return newSnapshot(KindUndefined, owner), nil
	case Null:
		return newSnapshot(KindNull, owner), nil
	case Bool:
		s := newSnapshot(KindBool, owner)
		s.b = bool(val)
		return s, nil
	case Number:
		s := newSnapshot(KindNumber, owner)
		s.n = float64(val)
		return s, nil
	case String:
		if !utf8.ValidString(string(val)) {
			return nil, &errors.AdaptationError{Path: path, Got: string(val), Reason: "string is not valid UTF-8"}
		}
		s := newSnapshot(KindString, owner)
		s.s = string(val)
		return s, nil
	case Array:
		s := newSnapshot(KindArray, owner)
		s.items = make([]*Snapshot, len(val))
		for i, item := range val {
			child, err := a.adapt(item, owner, indexPath(path, i))
			if err != nil {
				return nil, err
			}
			s.items[i] = child
		}
		return s, nil
	case Object:
		s := newSnapshot(KindObject, owner)
		s.items = make([]*Snapshot, len(val))
		s.keys = make([]string, len(val))
		seen := make(map[string]struct{}, len(val))
		for i, f := range val {
			if _, dup := seen[f.Name]; dup {
				return nil, &errors.AdaptationError{Path: fieldPath(path, f.Name), Got: f.Value, Reason: "duplicate field"}
			}
			seen[f.Name] = struct{}{}
			child, err := a.adapt(f.Value, owner, fieldPath(path, f.Name))
			if err != nil {
				return nil, err
			}
			s.keys[i] = f.Name
			s.items[i] = child
		}
		return s, nil
	case Cell:
		if val.Ref == nil {
			return nil, &errors.AdaptationError{Path: path, Got: v, Reason: "cell without reference"}
		}
		s := newSnapshot(KindCell, owner)
		s.cell = val.Ref
		return s, nil
	case Closure:
		if val == nil {
			return nil, &errors.AdaptationError{Path: path, Got: v, Reason: "nil closure"}
		}
		s := newSnapshot(KindClosure, owner)
		s.fn = val
		return s, nil
	case *Remote:
		if val == nil {
			return nil, &errors.AdaptationError{Path: path, Got: v, Reason: "nil remote"}
		}
		s := newSnapshot(KindRemote, owner)
		s.remote = val
		return s, nil
	}
	return nil, &errors.AdaptationError{Path: path, Got: v}
}

// Runtime is a materialization target.
type Runtime interface {
	// Tag identifies the runtime.
	Tag() RuntimeTag
	// Bind returns the runtime's live binding for a cell. Bind must return
	// the same object every time it is called with the same cell.
	Bind(ref CellRef) any
}

// Materialize converts s into a Go value inside rt. Plain data is copied
// fresh on every call (nil, bool, float64, string, []any, map[string]any);
// cells materialize to rt's binding, closures and remote handles to
// themselves. rt may be nil, in which case cells materialize to their
// CellRef.
func (s *Snapshot) Materialize(rt Runtime) any {
	switch s.kind {
	case KindUndefined:
		return Undefined{}
	case KindNull:
		return nil
	case KindBool:
		return s.b
	case KindNumber:
		return s.n
	case KindString:
		return s.s
	case KindArray:
		out := make([]any, len(s.items))
		for i, item := range s.items {
			out[i] = item.Materialize(rt)
		}
		return out
	case KindObject:
		out := make(map[string]any, len(s.items))
		for i, item := range s.items {
			out[s.keys[i]] = item.Materialize(rt)
		}
		return out
	case KindCell:
		if rt == nil {
			return s.cell
		}
		return rt.Bind(s.cell)
	case KindClosure:
		return s.fn
	case KindRemote:
		return s.remote
	}
	return nil
}

// ExtractCells walks s in pre-order and returns the ids of every cell it
// references, first occurrence first, without duplicates.
func ExtractCells(s *Snapshot) []uint64 {
	var ids []uint64
	seen := make(map[uint64]struct{})
	var walk func(*Snapshot)
	walk = func(n *Snapshot) {
		if n == nil {
			return
		}
		switch n.kind {
		case KindCell:
			id := n.cell.CellID()
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		case KindArray, KindObject:
			for _, item := range n.items {
				walk(item)
			}
		case KindRemote:
			walk(n.remote.Payload)
		}
	}
	walk(s)
	return ids
}

// Equal reports whether a and b hold observably equal values. Cells,
// closures and remote handles compare by identity; NaN never equals NaN.
func Equal(a, b *Snapshot) bool {
	if a == b {
		return a == nil || a.kind != KindNumber || !math.IsNaN(a.n)
	}
	if a == nil || b == nil || a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindUndefined, KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return a.n == b.n
	case KindString:
		return a.s == b.s
	case KindArray, KindObject:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if a.kind == KindObject && a.keys[i] != b.keys[i] {
				return false
			}
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	case KindCell:
		return a.cell.CellID() == b.cell.CellID()
	case KindRemote:
		return a.remote == b.remote
	}
	// Closures are not comparable in Go; distinct snapshots never match.
	return false
}
