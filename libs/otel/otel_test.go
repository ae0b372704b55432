package otelx

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("OTEL_SAMPLING_RATIO", "2")
	t.Setenv("APP_ENV", "staging")
	cfg := ConfigFromEnv("reservation-service")
	if cfg.Enabled {
		t.Fatal("tracing should be disabled by default")
	}
	if cfg.SampleRatio != 1 {
		t.Fatalf("out of range ratio should fall back to 1, got %v", cfg.SampleRatio)
	}
	if cfg.Environment != "staging" || !cfg.Insecure || cfg.Endpoint != "localhost:4317" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestSamplerChoice(t *testing.T) {
	cases := map[float64]string{
		1:   sdktrace.ParentBased(sdktrace.AlwaysSample()).Description(),
		0:   sdktrace.ParentBased(sdktrace.NeverSample()).Description(),
		0.5: sdktrace.ParentBased(sdktrace.TraceIDRatioBased(0.5)).Description(),
	}
	for ratio, want := range cases {
		if got := sampler(ratio).Description(); got != want {
			t.Fatalf("sampler(%v) = %s, want %s", ratio, got, want)
		}
	}
}

func TestTraceContextRoundTrip(t *testing.T) {
	if _, err := Setup(context.Background(), Config{}); err != nil {
		t.Fatalf("setup: %v", err)
	}
	ctx := context.Background()
	if tp, ts := TraceContextStrings(ctx); tp != "" || ts != "" {
		t.Fatalf("expected empty trace context, got %q %q", tp, ts)
	}
	if got := ContextWithTraceContext(ctx, "", "vendor=1"); got != ctx {
		t.Fatal("expected the same context without a traceparent")
	}

	const parent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	restored := ContextWithTraceContext(ctx, parent, "")
	if got := TraceID(restored); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Fatalf("trace id not restored, got %q", got)
	}
	carrier := propagation.MapCarrier{}
	propagation.TraceContext{}.Inject(restored, carrier)
	if carrier["traceparent"] != parent {
		t.Fatalf("re-injected traceparent = %q", carrier["traceparent"])
	}
}
