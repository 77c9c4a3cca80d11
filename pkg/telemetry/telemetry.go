// Package telemetry installs an OpenTelemetry tracer provider for motion
// processes. Frame spans from the frame scheduler go wherever the global
// provider sends them.
//
// Tracing is opt-in: with no endpoint, Setup returns a no-op shutdown
// function and leaves the global provider alone.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// DefaultServiceName names the process when Options.ServiceName is empty.
const DefaultServiceName = "motion"

// Options configures tracing.
type Options struct {
	// Endpoint is the OTLP/HTTP collector URL. Empty disables tracing.
	Endpoint string
	// Disabled turns tracing off even when Endpoint is set.
	Disabled bool
	// ServiceName and ServiceVersion describe the process.
	ServiceName    string
	ServiceVersion string
	// SampleRatio samples root spans in (0, 1). Zero or one samples
	// every frame.
	SampleRatio float64
}

// Enabled reports whether Setup would install a provider.
func (o Options) Enabled() bool {
	return !o.Disabled && o.Endpoint != ""
}

// Setup initialises tracing with an OTLP/HTTP exporter.
//
// The returned shutdown function flushes pending spans and should be
// deferred by the caller.
func Setup(ctx context.Context, opts Options) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }
	if !opts.Enabled() {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(opts.Endpoint),
	)
	if err != nil {
		return noop, fmt.Errorf("otlp exporter: %w", err)
	}
	tp, err := Install(ctx, exporter, opts)
	if err != nil {
		return noop, err
	}
	return tp.Shutdown, nil
}

// Install registers a tracer provider exporting through exporter as the
// global provider and returns it.
func Install(ctx context.Context, exporter sdktrace.SpanExporter, opts Options) (*sdktrace.TracerProvider, error) {
	name := opts.ServiceName
	if name == "" {
		name = DefaultServiceName
	}
	attrs := []resource.Option{
		resource.WithAttributes(semconv.ServiceName(name)),
	}
	if opts.ServiceVersion != "" {
		attrs = append(attrs, resource.WithAttributes(semconv.ServiceVersion(opts.ServiceVersion)))
	}
	res, err := resource.New(ctx, attrs...)
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(opts.SampleRatio)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return tp, nil
}

func sampler(ratio float64) sdktrace.Sampler {
	if ratio <= 0 || ratio >= 1 {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}
