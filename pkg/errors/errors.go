// Package errors provides structured error handling for the motion engine.
//
// Errors raised on the render runtime never unwind across the runtime
// boundary. They are converted into values at the pass boundary and sent to
// a single host-level [ErrorHandler].
package errors

import (
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindAdaptation indicates a value could not be converted to a snapshot.
	KindAdaptation
	// KindHandlerInvocation indicates a user closure failed during an event,
	// mapper or frame callback pass.
	KindHandlerInvocation
	// KindScheduler indicates the platform frame primitive failed.
	KindScheduler
	// KindStaleHandle indicates an operation referenced an id that is no
	// longer registered.
	KindStaleHandle
	// KindParsing indicates a platform event payload could not be decoded.
	KindParsing
	// KindPanic indicates a recovered panic.
	KindPanic
	// KindPlatform indicates the host view system rejected an update.
	KindPlatform
)

func (k ErrorKind) String() string {
	switch k {
	case KindAdaptation:
		return "adaptation"
	case KindHandlerInvocation:
		return "handler"
	case KindScheduler:
		return "scheduler"
	case KindStaleHandle:
		return "stale-handle"
	case KindParsing:
		return "parsing"
	case KindPanic:
		return "panic"
	case KindPlatform:
		return "platform"
	default:
		return "unknown"
	}
}

// MotionError represents a structured error reported by the engine.
type MotionError struct {
	// Op is the operation that failed (e.g., "mapper.Execute").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// ID is the handle of the failing mapper, handler or cell, if any.
	ID uint64
	// Err is the underlying error.
	Err error
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *MotionError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("%s [%s] id=%d: %v", e.Op, e.Kind, e.ID, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *MotionError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "frame.Deliver").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// AdaptationError reports a value that could not be turned into a snapshot.
// Path locates the failing node inside a composite value ("" for the root).
type AdaptationError struct {
	Path   string
	Got    any
	Reason string
}

func (e *AdaptationError) Error() string {
	where := e.Path
	if where == "" {
		where = "<root>"
	}
	if e.Reason != "" {
		return fmt.Sprintf("cannot adapt value at %s (%T): %s", where, e.Got, e.Reason)
	}
	return fmt.Sprintf("cannot adapt value at %s: unsupported type %T", where, e.Got)
}

// HandlerInvocationError reports a user closure that returned an error or
// panicked while the engine was running it.
type HandlerInvocationError struct {
	// Unit names the kind of closure ("mapper", "event handler", "frame callback").
	Unit string
	// ID is the registration handle of the closure, zero for frame callbacks.
	ID uint64
	// Key is the event key for event handlers.
	Key string
	// Recovered is the panic value (nil for regular errors).
	Recovered any
	// Err is the returned error (nil for panics).
	Err error
}

func (e *HandlerInvocationError) Error() string {
	name := e.Unit
	if e.ID != 0 {
		name = fmt.Sprintf("%s %d", e.Unit, e.ID)
	}
	if e.Key != "" {
		name = fmt.Sprintf("%s (%s)", name, e.Key)
	}
	if e.Recovered != nil {
		return fmt.Sprintf("panic in %s: %v", name, e.Recovered)
	}
	if e.Err != nil {
		return fmt.Sprintf("error in %s: %v", name, e.Err)
	}
	return fmt.Sprintf("unknown failure in %s", name)
}

func (e *HandlerInvocationError) Unwrap() error {
	return e.Err
}

// SchedulerError reports a failure of the platform request-next-frame primitive.
type SchedulerError struct {
	Err error
}

func (e *SchedulerError) Error() string {
	return fmt.Sprintf("request next frame: %v", e.Err)
}

func (e *SchedulerError) Unwrap() error {
	return e.Err
}

// StaleHandleError reports an operation on an id that is no longer registered.
type StaleHandleError struct {
	// Unit names the handle type ("mapper", "event handler", "cell").
	Unit string
	ID   uint64
}

func (e *StaleHandleError) Error() string {
	return fmt.Sprintf("stale %s handle %d", e.Unit, e.ID)
}

// ErrorHandler receives errors reported by the engine.
type ErrorHandler interface {
	// HandleError is called when an error occurs.
	HandleError(err *MotionError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}
