package cell

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-drift/motion/pkg/shareable"
)

// Notifier is told which mappers became dirty after a cell write.
type Notifier interface {
	MarkDirty(mapperID uint64)
}

// Poster queues work on the render thread.
type Poster interface {
	ScheduleOnRender(fn func()) bool
}

// ErrStoreClosed is returned when cells are created after Close.
var ErrStoreClosed = fmt.Errorf("cell store closed")

// Store is the arena that owns every cell of one render runtime. Ids start
// at 1 and are never reused for the lifetime of the store.
type Store struct {
	// ShortCircuitEqualWrites drops writes whose value equals the current
	// one. Off by default: every write dirties subscribers.
	ShortCircuitEqualWrites bool

	mu     sync.Mutex
	cells  map[uint64]*Cell
	nextID atomic.Uint64
	closed bool

	notifier Notifier
	poster   Poster
}

// NewStore creates an empty store. notifier receives dirty marks from cell
// writes; poster carries control-runtime writes to the render thread.
func NewStore(notifier Notifier, poster Poster) *Store {
	return &Store{
		cells:    make(map[uint64]*Cell),
		notifier: notifier,
		poster:   poster,
	}
}

// SetNotifier replaces the dirty-mark receiver. Call before any write.
func (s *Store) SetNotifier(n Notifier) {
	s.notifier = n
}

// Create adds a cell holding initial. The returned cell carries one host
// reference. Safe to call from any goroutine.
func (s *Store) Create(initial *shareable.Snapshot) (*Cell, error) {
	if initial == nil {
		return nil, fmt.Errorf("cell initial value is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	c := &Cell{
		id:          s.nextID.Add(1),
		store:       s,
		value:       initial,
		subscribers: make(map[uint64]struct{}),
	}
	c.published.Store(initial)
	c.refs.Store(1)
	s.cells[c.id] = c
	return c, nil
}

// NewCell implements shareable.CellFactory.
func (s *Store) NewCell(initial *shareable.Snapshot) (shareable.CellRef, error) {
	c, err := s.Create(initial)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Get looks up a live cell.
func (s *Store) Get(id uint64) (*Cell, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cells[id]
	return c, ok
}

// Len returns the number of live cells.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cells)
}

// Close removes every cell. Later writes and lookups are no-ops.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, c := range s.cells {
		c.removed.Store(true)
		delete(s.cells, id)
	}
}

func (s *Store) remove(c *Cell) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.removed.Store(true)
	delete(s.cells, c.id)
}
