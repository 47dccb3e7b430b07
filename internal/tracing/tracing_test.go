package tracing

import (
	"context"
	"testing"
)

func TestInitTracing_Disabled(t *testing.T) {
	tr, err := InitTracing(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, span := tr.StartSpan(context.Background(), "evaluate")
	if span.SpanContext().IsValid() {
		t.Error("expected no-op span")
	}
	span.End()
	if err := tr.Shutdown(context.Background()); err != nil {
		t.Errorf("unexpected shutdown error: %v", err)
	}
}

func TestInitTracing_UnknownExporter(t *testing.T) {
	if _, err := InitTracing(context.Background(), Config{Enabled: true, Exporter: "zipkin"}); err == nil {
		t.Fatal("expected error for unsupported exporter")
	}
}

func TestInitTracing_OTLP(t *testing.T) {
	tr, err := InitTracing(context.Background(), Config{
		Enabled:     true,
		Exporter:    "otlp",
		Endpoint:    "http://127.0.0.1:4318/v1/traces",
		Environment: "test",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, span := tr.StartSpan(context.Background(), "evaluate")
	if !span.SpanContext().IsValid() {
		t.Error("expected a recording span")
	}
	span.End()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = tr.Shutdown(ctx)
}

func TestNilTracer(t *testing.T) {
	var tr *Tracer
	_, span := tr.StartSpan(context.Background(), "x")
	span.End()
	if err := tr.Shutdown(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
