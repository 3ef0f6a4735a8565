package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/keyfactory/querykey"
)

// FetchMeta identifies a fetch for telemetry purposes.
type FetchMeta struct {
	Key       querykey.Key
	Root      string // first key segment
	Operation string // second key segment when it is a string, else empty
}

// MetaFromKey derives fetch metadata from a composed key.
func MetaFromKey(k querykey.Key) FetchMeta {
	meta := FetchMeta{Key: k, Root: k.Root()}
	if k.Len() > 1 {
		if op, ok := k.At(1).(string); ok {
			meta.Operation = op
		}
	}
	return meta
}

// SpanName returns the deterministic span name for this fetch.
// Format: querykey.fetch.<root>.<operation> or querykey.fetch.<root>
func (m FetchMeta) SpanName() string {
	if m.Operation != "" {
		return "querykey.fetch." + m.Root + "." + m.Operation
	}
	return "querykey.fetch." + m.Root
}

func (m FetchMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("key.root", m.Root),
	}
	if m.Operation != "" {
		attrs = append(attrs, attribute.String("key.operation", m.Operation))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with fetch-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a fetch.
	StartSpan(ctx context.Context, meta FetchMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a span carrying the key identity as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta FetchMeta) (context.Context, trace.Span) {
	attrs := append(meta.attributes(),
		attribute.String("key", meta.Key.String()),
		attribute.Int("key.length", meta.Key.Len()),
		attribute.Bool("fetch.error", false),
	)

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("fetch.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta FetchMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
