package engine

import (
	"time"
)

// Diagnostics controls frame tracing and the debug server.
type Diagnostics struct {
	// TraceFrames records per-frame timings in a ring buffer.
	TraceFrames bool
	// TraceSamples is the ring buffer capacity. Defaults to 240.
	TraceSamples int
	// TargetFrameTime is the slow-frame threshold. Defaults to 16.67ms.
	TargetFrameTime time.Duration
	// DebugServerPort enables an HTTP debug server on the port.
	// 0 = disabled. The server implies frame tracing.
	DebugServerPort int
	// RuntimeSampleInterval controls how often memory and GC stats are
	// sampled while the debug server runs. Defaults to 5s.
	RuntimeSampleInterval time.Duration
	// RuntimeSampleWindow is the history kept. Defaults to 60s.
	RuntimeSampleWindow time.Duration
}

// DefaultDiagnostics returns diagnostics with frame tracing on and no
// debug server.
func DefaultDiagnostics() *Diagnostics {
	return &Diagnostics{
		TraceFrames:     true,
		TargetFrameTime: 16667 * time.Microsecond,
	}
}
