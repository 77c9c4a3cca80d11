// Package shareable converts values into immutable snapshots that can be
// handed from one runtime to another.
//
// The platform binding decides once, through [From], which variant a Go value
// maps to. Everything past that point works over the closed [Value] set:
// [Adapter.Adapt] turns a Value into a [Snapshot], and
// [Snapshot.Materialize] turns a Snapshot back into a plain Go value inside a
// target runtime. Reactive cells travel by reference, everything else by
// value.
package shareable

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/go-drift/motion/pkg/errors"
)

// RuntimeTag identifies one side of the engine.
type RuntimeTag int

const (
	// ControlRuntime is where application code declares animations.
	ControlRuntime RuntimeTag = iota
	// RenderRuntime is colocated with the rendering thread; cells live here.
	RenderRuntime
)

func (t RuntimeTag) String() string {
	switch t {
	case ControlRuntime:
		return "control"
	case RenderRuntime:
		return "render"
	default:
		return fmt.Sprintf("RuntimeTag(%d)", int(t))
	}
}

// Kind identifies the variant held by a Value or Snapshot.
type Kind int

const (
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
	KindCell
	KindClosure
	KindRemote
)

var kindNames = [...]string{
	KindUndefined: "undefined",
	KindNull:      "null",
	KindBool:      "bool",
	KindNumber:    "number",
	KindString:    "string",
	KindArray:     "array",
	KindObject:    "object",
	KindCell:      "cell",
	KindClosure:   "closure",
	KindRemote:    "remote",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is the closed set of values accepted by [Adapter.Adapt].
// The variants are [Undefined], [Null], [Bool], [Number], [String], [Array],
// [Object], [Cell], [Closure], [*Remote] and [*Snapshot].
type Value interface {
	valueKind() Kind
}

type (
	Undefined struct{}
	Null      struct{}
	Bool      bool
	Number    float64
	String    string
	Array     []Value
	// Object keeps its fields in declaration order.
	Object []Field
)

// Field is one named entry of an Object.
type Field struct {
	Name  string
	Value Value
}

// Closure is an opaque unit of work. The engine schedules and invokes
// closures but never looks inside them.
type Closure func(args ...any) (any, error)

// CellRef is implemented by reactive cells. A snapshot holding a CellRef
// points at the cell, it never copies it.
type CellRef interface {
	CellID() uint64
}

// Cell wraps a reference to an existing reactive cell.
type Cell struct {
	Ref CellRef
}

// Remote is an externally observable handle: the payload is shared by
// identity between runtimes instead of being copied.
type Remote struct {
	ID      uint64
	Payload *Snapshot
}

func (Undefined) valueKind() Kind { return KindUndefined }
func (Null) valueKind() Kind      { return KindNull }
func (Bool) valueKind() Kind      { return KindBool }
func (Number) valueKind() Kind    { return KindNumber }
func (String) valueKind() Kind    { return KindString }
func (Array) valueKind() Kind     { return KindArray }
func (Object) valueKind() Kind    { return KindObject }
func (Cell) valueKind() Kind      { return KindCell }
func (Closure) valueKind() Kind   { return KindClosure }
func (*Remote) valueKind() Kind   { return KindRemote }

// From converts a Go value into a Value. Maps are converted with their keys
// sorted so that repeated conversions produce the same field order.
func From(x any) (Value, error) {
	return from(x, "")
}

func from(x any, path string) (Value, error) {
	switch v := x.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return v, nil
	case CellRef:
		return Cell{Ref: v}, nil
	case bool:
		return Bool(v), nil
	case string:
		return String(v), nil
	case float64:
		return Number(v), nil
	case float32:
		return Number(v), nil
	case int:
		return intNumber(int64(v), x, path)
	case int32:
		return Number(v), nil
	case int64:
		return intNumber(v, x, path)
	case uint32:
		return Number(v), nil
	case uint:
		return uintNumber(uint64(v), x, path)
	case uint64:
		return uintNumber(v, x, path)
	case func(args ...any) (any, error):
		return Closure(v), nil
	case []any:
		arr := make(Array, len(v))
		for i, item := range v {
			conv, err := from(item, indexPath(path, i))
			if err != nil {
				return nil, err
			}
			arr[i] = conv
		}
		return arr, nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := make(Object, 0, len(keys))
		for _, k := range keys {
			conv, err := from(v[k], fieldPath(path, k))
			if err != nil {
				return nil, err
			}
			obj = append(obj, Field{Name: k, Value: conv})
		}
		return obj, nil
	}
	return fromReflect(x, path)
}

func fromReflect(x any, path string) (Value, error) {
	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return intNumber(rv.Int(), x, path)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return uintNumber(rv.Uint(), x, path)
	case reflect.Float32, reflect.Float64:
		return Number(rv.Float()), nil
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Slice, reflect.Array:
		arr := make(Array, rv.Len())
		for i := range rv.Len() {
			conv, err := from(rv.Index(i).Interface(), indexPath(path, i))
			if err != nil {
				return nil, err
			}
			arr[i] = conv
		}
		return arr, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, &errors.AdaptationError{Path: path, Got: x, Reason: "map keys must be strings"}
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		obj := make(Object, 0, len(keys))
		for _, k := range keys {
			item := rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key()))
			conv, err := from(item.Interface(), fieldPath(path, k))
			if err != nil {
				return nil, err
			}
			obj = append(obj, Field{Name: k, Value: conv})
		}
		return obj, nil
	}
	return nil, &errors.AdaptationError{Path: path, Got: x}
}

// maxExactInt is the largest magnitude a float64 holds without rounding.
const maxExactInt = 1 << 53

func intNumber(v int64, x any, path string) (Value, error) {
	if v > maxExactInt || v < -maxExactInt {
		return nil, precisionError(x, path)
	}
	return Number(v), nil
}

func uintNumber(v uint64, x any, path string) (Value, error) {
	if v > maxExactInt {
		return nil, precisionError(x, path)
	}
	return Number(v), nil
}

func precisionError(x any, path string) error {
	return &errors.AdaptationError{Path: path, Got: x, Reason: "integer exceeds float64 precision"}
}

func indexPath(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}

func fieldPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
