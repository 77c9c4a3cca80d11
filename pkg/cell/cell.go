// Package cell implements reactive cells: mutable, subscribable slots owned
// by the render runtime.
//
// Cells live in a [Store] and are addressed by a stable numeric id. Mappers
// subscribe by id, so a cell never holds a pointer back to the computations
// that read it. Writes happen on the render thread only; the control runtime
// reads the last published snapshot and posts its writes to the render queue
// through a [Binding].
package cell

import (
	"slices"
	"sync/atomic"

	"github.com/go-drift/motion/pkg/errors"
	"github.com/go-drift/motion/pkg/shareable"
)

// Cell is a reactive memory location.
type Cell struct {
	id    uint64
	store *Store

	// value and subscribers belong to the render thread.
	value       *shareable.Snapshot
	subscribers map[uint64]struct{}
	writes      uint64

	published atomic.Pointer[shareable.Snapshot]
	refs      atomic.Int64
	removed   atomic.Bool
}

// CellID returns the cell's id. It implements shareable.CellRef.
func (c *Cell) CellID() uint64 { return c.id }

// Value returns the live value. Render thread only.
func (c *Cell) Value() *shareable.Snapshot { return c.value }

// Read returns the cell's value as seen from the given runtime. The render
// runtime sees the live value; other runtimes see the most recently
// published copy, which may lag behind pending render-side writes.
func (c *Cell) Read(tag shareable.RuntimeTag) *shareable.Snapshot {
	if tag == shareable.RenderRuntime {
		return c.value
	}
	return c.published.Load()
}

// Write replaces the value and marks every subscribed mapper dirty. The
// mappers are not run here; they run on the next registry pass. Render
// thread only.
func (c *Cell) Write(v *shareable.Snapshot) {
	if v == nil {
		return
	}
	if c.removed.Load() {
		errors.ReportStale("cell.Write", "cell", c.id)
		return
	}
	if c.store.ShortCircuitEqualWrites && shareable.Equal(c.value, v) {
		return
	}
	c.value = v
	c.writes++
	c.published.Store(v)
	if n := c.store.notifier; n != nil {
		for id := range c.subscribers {
			n.MarkDirty(id)
		}
	}
}

// Writes returns how many writes the cell has accepted. Render thread only.
func (c *Cell) Writes() uint64 { return c.writes }

// Subscribe adds a mapper to the subscriber set. Repeated calls are no-ops.
func (c *Cell) Subscribe(mapperID uint64) {
	c.subscribers[mapperID] = struct{}{}
}

// Unsubscribe removes a mapper from the subscriber set.
func (c *Cell) Unsubscribe(mapperID uint64) {
	delete(c.subscribers, mapperID)
}

// Subscribers returns the subscribed mapper ids in ascending order.
func (c *Cell) Subscribers() []uint64 {
	ids := make([]uint64, 0, len(c.subscribers))
	for id := range c.subscribers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Retain adds a holder.
func (c *Cell) Retain() {
	c.refs.Add(1)
}

// Release drops a holder. The cell leaves its store when the last holder
// is gone.
func (c *Cell) Release() {
	if c.refs.Add(-1) == 0 {
		c.store.remove(c)
	}
}

// Removed reports whether the cell has left its store.
func (c *Cell) Removed() bool { return c.removed.Load() }
