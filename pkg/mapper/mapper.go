// Package mapper runs derived computations over reactive cells.
//
// A mapper reads a fixed set of input cells and writes a fixed set of output
// cells. Writing an input marks the mapper dirty; dirty mappers run on the
// next [Registry.Execute] call in registration order. Mappers are not sorted
// by dependency, so a chain of mappers settles over several passes.
package mapper

import (
	"github.com/go-drift/motion/pkg/cell"
)

// Pass identifies what triggered an Execute call.
type Pass int

const (
	// PassEvent runs after an event has been processed.
	PassEvent Pass = iota
	// PassFrame runs once per delivered frame. Continuous mappers run on
	// every frame pass even when clean.
	PassFrame
)

func (p Pass) String() string {
	if p == PassFrame {
		return "frame"
	}
	return "event"
}

// Updater computes a mapper's outputs. inputs holds the materialized input
// values in declaration order (nil for inputs whose cell is gone). outputs
// holds render-runtime bindings for the output cells. The returned value is
// handed to the fast-path closures, if any.
type Updater func(inputs []any, outputs []*cell.Binding) (any, error)

// FastPath configures direct application of a mapper result, bypassing
// output cells.
type FastPath struct {
	// Level above zero makes the mapper continuous: it runs on every frame
	// and keeps frames coming while registered.
	Level int
	// Apply closures receive the raw updater result after each run.
	Apply []func(result any) error
}

// Mapper is a registered computation.
type Mapper struct {
	id      uint64
	updater Updater
	inputs  []uint64
	outputs []uint64
	fast    *FastPath
	runs    uint64
}

// ID returns the mapper handle.
func (m *Mapper) ID() uint64 { return m.id }

// Inputs returns the input cell ids.
func (m *Mapper) Inputs() []uint64 { return append([]uint64(nil), m.inputs...) }

// Outputs returns the output cell ids.
func (m *Mapper) Outputs() []uint64 { return append([]uint64(nil), m.outputs...) }

// Runs returns how many times the updater has been invoked.
func (m *Mapper) Runs() uint64 { return m.runs }

// Continuous reports whether the mapper runs on every frame.
func (m *Mapper) Continuous() bool { return m.fast != nil && m.fast.Level > 0 }

// Info describes a mapper for diagnostics.
type Info struct {
	ID         uint64   `json:"id"`
	Inputs     []uint64 `json:"inputs"`
	Outputs    []uint64 `json:"outputs"`
	Level      int      `json:"level"`
	Runs       uint64   `json:"runs"`
	Dirty      bool     `json:"dirty"`
	FastPaths  int      `json:"fastPaths"`
	Continuous bool     `json:"continuous"`
}
