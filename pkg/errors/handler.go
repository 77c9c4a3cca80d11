package errors

import (
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	// DefaultHandler is the global error handler.
	// It defaults to LogHandler with verbose=false.
	DefaultHandler ErrorHandler = &LogHandler{}

	handlerMu sync.RWMutex
)

// SetHandler configures the global error handler and returns the previous one.
// Pass nil to restore the default LogHandler.
func SetHandler(h ErrorHandler) ErrorHandler {
	handlerMu.Lock()
	defer handlerMu.Unlock()
	prev := DefaultHandler
	if h == nil {
		DefaultHandler = &LogHandler{}
	} else {
		DefaultHandler = h
	}
	return prev
}

// getHandler returns the current error handler.
func getHandler() ErrorHandler {
	handlerMu.RLock()
	defer handlerMu.RUnlock()
	return DefaultHandler
}

// Report sends an error to the global handler.
// If err.Timestamp is zero, it is set to the current time.
func Report(err *MotionError) {
	if err == nil {
		return
	}
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	if h := getHandler(); h != nil {
		h.HandleError(err)
	}
}

// ReportPanic sends a panic error to the global handler.
func ReportPanic(err *PanicError) {
	if err == nil {
		return
	}
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	if h := getHandler(); h != nil {
		h.HandlePanic(err)
	}
}

// ReportStale reports an operation on a handle that is no longer registered.
func ReportStale(op, unit string, id uint64) {
	Report(&MotionError{
		Op:   op,
		Kind: KindStaleHandle,
		ID:   id,
		Err:  &StaleHandleError{Unit: unit, ID: id},
	})
}

// Recover is a helper for deferred panic recovery.
// Usage: defer errors.Recover("operation.name")
func Recover(op string) {
	if r := recover(); r != nil {
		ReportPanic(&PanicError{
			Op:         op,
			Value:      r,
			StackTrace: CaptureStack(),
			Timestamp:  time.Now(),
		})
	}
}

// Invoke runs fn and converts a returned error or a panic into a
// HandlerInvocationError reported under op. It returns false when fn failed.
// The caller keeps running: one failing closure never aborts a pass.
func Invoke(op, unit string, id uint64, key string, fn func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			Report(&MotionError{
				Op:         op,
				Kind:       KindHandlerInvocation,
				ID:         id,
				Err:        &HandlerInvocationError{Unit: unit, ID: id, Key: key, Recovered: r},
				StackTrace: CaptureStack(),
			})
		}
	}()
	if err := fn(); err != nil {
		Report(&MotionError{
			Op:   op,
			Kind: KindHandlerInvocation,
			ID:   id,
			Err:  &HandlerInvocationError{Unit: unit, ID: id, Key: key, Err: err},
		})
		return false
	}
	return true
}

// CaptureStack returns the current call stack as a string.
// It skips the first few frames to exclude the CaptureStack call itself.
func CaptureStack() string {
	const maxDepth = 32
	var pcs [maxDepth]uintptr
	n := runtime.Callers(3, pcs[:])
	if n == 0 {
		return ""
	}

	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		frame, more := frames.Next()
		sb.WriteString(frame.Function)
		sb.WriteString("\n\t")
		sb.WriteString(frame.File)
		sb.WriteString(":")
		sb.WriteString(strconv.Itoa(frame.Line))
		sb.WriteString("\n")
		if !more {
			break
		}
	}
	return sb.String()
}
