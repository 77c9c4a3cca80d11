package telemetry_test

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/go-drift/motion/pkg/cell"
	"github.com/go-drift/motion/pkg/mapper"
	"github.com/go-drift/motion/pkg/telemetry"
	motiontest "github.com/go-drift/motion/pkg/testing"
)

func restoreGlobalProvider(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
}

func TestSetup_NoopWhenEndpointEmpty(t *testing.T) {
	shutdown, err := telemetry.Setup(context.Background(), telemetry.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_NoopWhenExplicitlyDisabled(t *testing.T) {
	opts := telemetry.Options{Endpoint: "http://localhost:4318", Disabled: true}
	if opts.Enabled() {
		t.Fatal("disabled options report enabled")
	}
	shutdown, err := telemetry.Setup(context.Background(), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_CreatesProviderWhenEndpointSet(t *testing.T) {
	restoreGlobalProvider(t)

	// Use a non-routable address so no actual export happens.
	shutdown, err := telemetry.Setup(context.Background(), telemetry.Options{
		Endpoint:    "http://192.0.2.1:4318",
		ServiceName: "test-service",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Shutdown should flush cleanly even though the endpoint is unreachable.
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestInstall_ExportsFrameSpans(t *testing.T) {
	restoreGlobalProvider(t)
	ctx := context.Background()

	exporter := tracetest.NewInMemoryExporter()
	tp, err := telemetry.Install(ctx, exporter, telemetry.Options{ServiceVersion: "v0.1.0"})
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	defer tp.Shutdown(ctx)

	// The engine picks its tracer up from the global provider at creation.
	tester := motiontest.NewEngineTesterWithT(t)
	e := tester.Engine()
	c, err := e.MakeMutable(0)
	if err != nil {
		t.Fatalf("MakeMutable: %v", err)
	}
	if _, err := e.StartMapper(func([]any, []*cell.Binding) (any, error) { return nil, nil },
		[]any{c}, nil, &mapper.FastPath{Level: 1}); err != nil {
		t.Fatalf("StartMapper: %v", err)
	}
	if n := tester.PumpFrames(3); n != 3 {
		t.Fatalf("pumped %d frames, want 3", n)
	}

	if err := tp.ForceFlush(ctx); err != nil {
		t.Fatalf("ForceFlush: %v", err)
	}
	spans := exporter.GetSpans()
	if len(spans) != 3 {
		t.Fatalf("exported %d spans, want 3", len(spans))
	}
	for _, s := range spans {
		if s.Name != "motion.frame" {
			t.Errorf("span name %q", s.Name)
		}
	}
	if got := spans[0].Resource.Attributes(); len(got) == 0 {
		t.Error("spans carry no resource attributes")
	}
}
