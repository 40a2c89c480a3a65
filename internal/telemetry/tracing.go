// Package telemetry configures OpenTelemetry tracing for the delf
// deletion engine.
//
// Custom span attributes use the `delf.` prefix.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "delf/deletion"

// Tracer returns the package-level tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// InitTraceProvider initialises the OTel trace provider with an OTLP gRPC exporter.
// If endpoint is empty, tracing is disabled (noop provider is used).
// Returns a shutdown function that must be called on application exit.
func InitTraceProvider(ctx context.Context, endpoint string, version string) (func(context.Context) error, error) {
	if endpoint == "" {
		// No-op: tracing disabled
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(), // always plaintext: this explicit option takes precedence over OTEL_EXPORTER_OTLP_INSECURE
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String("delfd"),
			semconv.ServiceVersionKey.String(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// --- Span helpers ---

// StartDeleteObjectSpan creates the span wrapping one _delete_object call.
func StartDeleteObjectSpan(ctx context.Context, object, id, fromEdge string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("delf.object", object),
		attribute.String("delf.id", id),
	}
	if fromEdge != "" {
		attrs = append(attrs, attribute.String("delf.from_edge", fromEdge))
	}
	return Tracer().Start(ctx, "deletion.delete_object", trace.WithAttributes(attrs...))
}

// EndDeleteObjectSpan enriches the delete_object span with the outcome.
func EndDeleteObjectSpan(span trace.Span, toDelete, removed bool) {
	span.SetAttributes(
		attribute.Bool("delf.to_delete", toDelete),
		attribute.Bool("delf.removed", removed),
	)
	span.End()
}

// StartDeleteEdgeSpan creates the span wrapping one edge.delete_one call.
func StartDeleteEdgeSpan(ctx context.Context, edge, fromID, toID string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "deletion.delete_edge", trace.WithAttributes(
		attribute.String("delf.edge", edge),
		attribute.String("delf.from_id", fromID),
		attribute.String("delf.to_id", toID),
	))
}

// StartDeleteAllSpan creates the span wrapping one edge.delete_all call.
func StartDeleteAllSpan(ctx context.Context, edge, fromID string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "deletion.delete_all", trace.WithAttributes(
		attribute.String("delf.edge", edge),
		attribute.String("delf.from_id", fromID),
	))
}

// StartSweepSpan creates the span wrapping a single sweeper tick.
func StartSweepSpan(ctx context.Context) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "sweeper.tick")
}
