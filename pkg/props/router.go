// Package props routes view property updates produced on the render
// thread.
//
// Each property name falls into one of three groups. UI properties are
// applied to the view immediately. Native properties affect layout and are
// queued into an operations batch that is flushed after every event and
// frame. Everything else is handed back to the control runtime.
package props

import (
	"fmt"
	"maps"
	"slices"

	"github.com/go-drift/motion/pkg/errors"
	"github.com/go-drift/motion/pkg/platform"
)

// ControlSink receives properties that neither the UI nor the layout
// system handles. It is called on the render thread and is expected to
// post to the control thread.
type ControlSink func(viewTag int64, props map[string]any)

type operation struct {
	tag   int64
	props map[string]any
}

// Router splits property updates by destination. Render thread only.
type Router struct {
	host    platform.ViewHost
	control ControlSink

	ui     map[string]struct{}
	native map[string]struct{}
	ops    []operation
}

// NewRouter creates a router writing to host. control may be nil, in which
// case unclassified properties are dropped.
func NewRouter(host platform.ViewHost, control ControlSink) *Router {
	return &Router{
		host:    host,
		control: control,
		ui:      make(map[string]struct{}),
		native:  make(map[string]struct{}),
	}
}

// Configure replaces the UI and native property name sets.
func (r *Router) Configure(uiProps, nativeProps []string) {
	r.ui = make(map[string]struct{}, len(uiProps))
	for _, p := range uiProps {
		r.ui[p] = struct{}{}
	}
	r.native = make(map[string]struct{}, len(nativeProps))
	for _, p := range nativeProps {
		r.native[p] = struct{}{}
	}
}

// Configured returns the sorted UI and native property names.
func (r *Router) Configured() (uiProps, nativeProps []string) {
	return slices.Sorted(maps.Keys(r.ui)), slices.Sorted(maps.Keys(r.native))
}

// Update routes props for one view. UI properties reach the host before
// Update returns; native properties wait for PerformOperations.
func (r *Router) Update(viewTag int64, props map[string]any) error {
	var ui, native, rest map[string]any
	for k, v := range props {
		switch {
		case r.has(r.ui, k):
			ui = put(ui, k, v)
		case r.has(r.native, k):
			native = put(native, k, v)
		default:
			rest = put(rest, k, v)
		}
	}

	var err error
	if ui != nil {
		if uerr := r.host.UpdateView(viewTag, ui); uerr != nil {
			err = fmt.Errorf("update view %d: %w", viewTag, uerr)
		}
	}
	if native != nil {
		r.ops = append(r.ops, operation{tag: viewTag, props: native})
	}
	if rest != nil && r.control != nil {
		r.control(viewTag, rest)
	}
	return err
}

func (r *Router) has(set map[string]struct{}, k string) bool {
	_, ok := set[k]
	return ok
}

func put(m map[string]any, k string, v any) map[string]any {
	if m == nil {
		m = make(map[string]any)
	}
	m[k] = v
	return m
}

// Pending returns the number of queued layout operations.
func (r *Router) Pending() int {
	return len(r.ops)
}

// PerformOperations flushes queued layout operations in order and returns
// how many were applied. A rejected operation is reported and the rest
// still run.
func (r *Router) PerformOperations() int {
	if len(r.ops) == 0 {
		return 0
	}
	ops := r.ops
	r.ops = nil
	applied := 0
	for _, op := range ops {
		if err := r.host.UpdateLayout(op.tag, op.props); err != nil {
			errors.Report(&errors.MotionError{
				Op:   "props.PerformOperations",
				Kind: errors.KindPlatform,
				Err:  fmt.Errorf("update layout of view %d: %w", op.tag, err),
			})
			continue
		}
		applied++
	}
	return applied
}

// Direct returns a fast-path closure that applies a mapper result to one
// view. A map result is used as the property set; any other value is
// applied as the single property name.
func Direct(r *Router, viewTag int64, name string) func(result any) error {
	return func(result any) error {
		if m, ok := result.(map[string]any); ok {
			return r.Update(viewTag, m)
		}
		return r.Update(viewTag, map[string]any{name: result})
	}
}
