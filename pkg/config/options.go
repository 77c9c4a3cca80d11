package config

import (
	"time"

	"github.com/go-drift/motion/pkg/engine"
	"github.com/go-drift/motion/pkg/telemetry"
)

// EngineOptions converts the configuration into engine options. Host,
// frames and callbacks are left for the caller.
func (c *Config) EngineOptions() engine.Options {
	o := engine.Options{
		ShortCircuitEqualWrites: c.Engine.ShortCircuitEqualWrites,
		LockRenderThread:        c.Engine.LockRenderThread,
		UIProps:                 c.Props.UI,
		NativeProps:             c.Props.Native,
	}
	if c.Frames.FPS > 0 {
		o.FrameInterval = time.Second / time.Duration(c.Frames.FPS)
	}
	if d := c.Diagnostics; d.TraceFrames || d.DebugPort > 0 {
		o.Diagnostics = &engine.Diagnostics{
			TraceFrames:           d.TraceFrames,
			TraceSamples:          d.TraceSamples,
			TargetFrameTime:       d.TargetFrameTime,
			DebugServerPort:       d.DebugPort,
			RuntimeSampleInterval: d.RuntimeSampleInterval,
		}
	}
	return o
}

// TelemetryOptions converts the configuration into tracing options.
func (c *Config) TelemetryOptions() telemetry.Options {
	return telemetry.Options{
		Endpoint:       c.Telemetry.Endpoint,
		Disabled:       c.Telemetry.Disabled,
		ServiceName:    c.Telemetry.ServiceName,
		ServiceVersion: engine.Version,
		SampleRatio:    c.Telemetry.SampleRatio,
	}
}
