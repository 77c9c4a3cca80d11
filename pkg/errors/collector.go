package errors

import "sync"

// Collector is an ErrorHandler that keeps the most recent reports in memory.
// The debug server serves its contents and tests use it to assert on
// reported failures.
type Collector struct {
	mu      sync.Mutex
	limit   int
	errs    []*MotionError
	panics  []*PanicError
	forward ErrorHandler
}

// NewCollector returns a Collector that keeps up to limit entries of each
// kind (0 means unbounded). Reports are also forwarded to next when non-nil.
func NewCollector(limit int, next ErrorHandler) *Collector {
	return &Collector{limit: limit, forward: next}
}

func (c *Collector) HandleError(err *MotionError) {
	c.mu.Lock()
	c.errs = append(c.errs, err)
	if c.limit > 0 && len(c.errs) > c.limit {
		c.errs = c.errs[len(c.errs)-c.limit:]
	}
	c.mu.Unlock()
	if c.forward != nil {
		c.forward.HandleError(err)
	}
}

func (c *Collector) HandlePanic(err *PanicError) {
	c.mu.Lock()
	c.panics = append(c.panics, err)
	if c.limit > 0 && len(c.panics) > c.limit {
		c.panics = c.panics[len(c.panics)-c.limit:]
	}
	c.mu.Unlock()
	if c.forward != nil {
		c.forward.HandlePanic(err)
	}
}

// Errors returns a copy of the collected errors, oldest first.
func (c *Collector) Errors() []*MotionError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*MotionError(nil), c.errs...)
}

// Panics returns a copy of the collected panics, oldest first.
func (c *Collector) Panics() []*PanicError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*PanicError(nil), c.panics...)
}

// ErrorsOfKind returns the collected errors with the given kind.
func (c *Collector) ErrorsOfKind(kind ErrorKind) []*MotionError {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*MotionError
	for _, err := range c.errs {
		if err.Kind == kind {
			out = append(out, err)
		}
	}
	return out
}

// Reset drops everything collected so far.
func (c *Collector) Reset() {
	c.mu.Lock()
	c.errs = nil
	c.panics = nil
	c.mu.Unlock()
}
