// Package tracing instruments the runtime's own operations (scope
// enter/exit, alloc dispatch, class construction) with OpenTelemetry
// spans exported to Jaeger. Tracing is off until InitTracing runs;
// every helper here degrades to a no-op while off, so the mutator's hot
// paths pay nothing for an exporter nobody armed.
package tracing

import (
	"context"
	"fmt"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	serviceName    = "sammrt"
	serviceVersion = "1.0.0"
	tracerName     = serviceName + "/runtime"
)

var provider *tracesdk.TracerProvider

// InitTracing arms the Jaeger-backed tracer provider. jaegerEndpoint ""
// selects the default collector endpoint.
func InitTracing(jaegerEndpoint string) error {
	if jaegerEndpoint == "" {
		jaegerEndpoint = "http://jaeger:14268/api/traces"
	}

	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(jaegerEndpoint)))
	if err != nil {
		return fmt.Errorf("failed to create Jaeger exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	// AlwaysSample: the interesting workloads here are short compiled
	// programs, not long-lived request streams, so sampling away spans
	// would usually sample away the whole run.
	provider = tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exp),
		tracesdk.WithResource(res),
		tracesdk.WithSampler(tracesdk.AlwaysSample()),
	)
	otel.SetTracerProvider(provider)

	log.Printf("✓ Jaeger tracing initialized: %s", jaegerEndpoint)
	return nil
}

// Disabled reports whether tracing is currently disarmed (never
// initialized, or shut down), so callers can skip span creation
// entirely.
func Disabled() bool {
	return provider == nil
}

// Shutdown flushes and stops the tracer provider, returning the package
// to its disarmed state. Safe to call when tracing was never armed.
func Shutdown(ctx context.Context) error {
	if provider == nil {
		return nil
	}
	p := provider
	provider = nil
	return p.Shutdown(ctx)
}

// StartSAMMSpan starts a span for a runtime operation under the fixed
// runtime tracer. While tracing is disarmed it returns ctx unchanged and
// a no-op span, so hot-path callers never pay otel's span-creation cost
// for a tracer nobody is exporting.
func StartSAMMSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if Disabled() {
		return ctx, trace.SpanFromContext(ctx)
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, operation)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

// AddEvent attaches a point-in-time event to the span in ctx, used for
// off-nominal transitions inside an operation (a pool overflowing to the
// raw heap, a probable double free).
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent(name, trace.WithAttributes(attrs...))
	}
}

// RecordError records err on the span in ctx.
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.RecordError(err)
	}
}

// Attribute constructors for the runtime's domain, so call sites don't
// hand-spell attribute keys.

// ScopeDepth tags a span with the scope-stack depth it ran at.
func ScopeDepth(depth int) attribute.KeyValue {
	return attribute.Int("samm.scope_depth", depth)
}

// AllocSize tags a span with the requested allocation size in bytes.
func AllocSize(size int) attribute.KeyValue {
	return attribute.Int("samm.alloc_size", size)
}

// SizeClass tags a span with the slab size class that served an
// allocation; 0 means the raw-heap overflow path.
func SizeClass(class int) attribute.KeyValue {
	return attribute.Int("samm.size_class", class)
}

// ClassName tags a span with the BASIC class being constructed.
func ClassName(name string) attribute.KeyValue {
	return attribute.String("samm.class_name", name)
}
