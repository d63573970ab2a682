package otelx

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Options{Enabled: false, Endpoint: "ignored:4317"})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	fields := strings.Join(otel.GetTextMapPropagator().Fields(), ",")
	for _, f := range []string{"traceparent", "baggage"} {
		if !strings.Contains(fields, f) {
			t.Errorf("propagator fields %q missing %s", fields, f)
		}
	}

	_, span := otel.Tracer("test").Start(context.Background(), "op")
	defer span.End()
	if !span.SpanContext().IsValid() {
		t.Fatal("disabled tracing should still mint valid span ids")
	}
	if span.SpanContext().IsSampled() {
		t.Fatal("disabled tracing should not sample")
	}
}

func TestInit_EnabledReturnsPromptly(t *testing.T) {
	start := time.Now()
	shutdown, err := Init(context.Background(), Options{
		Enabled:   true,
		Endpoint:  "localhost:1",
		Insecure:  true,
		Sample:    1,
		Service:   "linnemanlabs-uihost",
		Component: "uihost",
		Version:   "test",
	})
	if elapsed := time.Since(start); elapsed > dialTimeout+2*time.Second {
		t.Fatalf("Init took %v", elapsed)
	}
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = shutdown(ctx)
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{-1, "AlwaysOffSampler"},
		{0, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
		{1, "AlwaysOnSampler"},
		{5, "AlwaysOnSampler"},
	}
	for _, tt := range tests {
		d := sampler(tt.ratio).Description()
		if !strings.HasPrefix(d, "ParentBased{root:"+tt.want) {
			t.Errorf("sampler(%v) = %s, want root %s", tt.ratio, d, tt.want)
		}
	}
	var _ sdktrace.Sampler = sampler(1)
}

func TestServiceName(t *testing.T) {
	if got := serviceName(Options{Service: "svc", Component: "ui"}); got != "svc.ui" {
		t.Fatalf("got %q", got)
	}
	if got := serviceName(Options{Service: "svc"}); got != "svc" {
		t.Fatalf("got %q", got)
	}
}
