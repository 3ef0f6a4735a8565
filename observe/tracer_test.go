package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/jonwraymond/keyfactory/querykey"
)

func spanAttrs(s sdktrace.ReadOnlySpan) map[string]attribute.Value {
	attrMap := make(map[string]attribute.Value)
	for _, a := range s.Attributes() {
		attrMap[string(a.Key)] = a.Value
	}
	return attrMap
}

func newRecordingTracer() (*tracetest.SpanRecorder, *sdktrace.TracerProvider, Tracer) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return recorder, tp, NewTracer(tp.Tracer("test"))
}

func TestMetaFromKey(t *testing.T) {
	tests := []struct {
		name      string
		key       querykey.Key
		root      string
		operation string
		spanName  string
	}{
		{
			name:      "root and operation",
			key:       querykey.NewKey("users", "detail", "u1"),
			root:      "users",
			operation: "detail",
			spanName:  "querykey.fetch.users.detail",
		},
		{
			name:     "root only",
			key:      querykey.NewKey("users"),
			root:     "users",
			spanName: "querykey.fetch.users",
		},
		{
			name:     "non-string second segment",
			key:      querykey.NewKey("pages", 3),
			root:     "pages",
			spanName: "querykey.fetch.pages",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			meta := MetaFromKey(tc.key)
			if meta.Root != tc.root {
				t.Errorf("Root = %q, want %q", meta.Root, tc.root)
			}
			if meta.Operation != tc.operation {
				t.Errorf("Operation = %q, want %q", meta.Operation, tc.operation)
			}
			if got := meta.SpanName(); got != tc.spanName {
				t.Errorf("SpanName() = %q, want %q", got, tc.spanName)
			}
		})
	}
}

// TestTracer_SpanAttributes verifies the key identity is recorded on the span.
func TestTracer_SpanAttributes(t *testing.T) {
	recorder, _, tr := newRecordingTracer()
	meta := MetaFromKey(querykey.NewKey("users", "detail", "u1"))

	_, span := tr.StartSpan(context.Background(), meta)
	tr.EndSpan(span, nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	s := spans[0]
	if s.Name() != "querykey.fetch.users.detail" {
		t.Errorf("expected span name 'querykey.fetch.users.detail', got %q", s.Name())
	}

	attrMap := spanAttrs(s)
	if v, ok := attrMap["key.root"]; !ok || v.AsString() != "users" {
		t.Errorf("expected key.root='users', got %v", v)
	}
	if v, ok := attrMap["key.operation"]; !ok || v.AsString() != "detail" {
		t.Errorf("expected key.operation='detail', got %v", v)
	}
	if v, ok := attrMap["key"]; !ok || v.AsString() != `["users","detail","u1"]` {
		t.Errorf("expected key attribute, got %v", v)
	}
	if v, ok := attrMap["key.length"]; !ok || v.AsInt64() != 3 {
		t.Errorf("expected key.length=3, got %v", v)
	}
	if v, ok := attrMap["fetch.error"]; !ok || v.AsBool() {
		t.Errorf("expected fetch.error=false, got %v", v)
	}
	if s.Status().Code != codes.Ok {
		t.Errorf("expected ok status, got %v", s.Status().Code)
	}
}

// TestTracer_SpanAttributesMinimal verifies key.operation is omitted for root-only keys.
func TestTracer_SpanAttributesMinimal(t *testing.T) {
	recorder, _, tr := newRecordingTracer()

	_, span := tr.StartSpan(context.Background(), MetaFromKey(querykey.NewKey("users")))
	tr.EndSpan(span, nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	attrMap := spanAttrs(spans[0])
	if _, ok := attrMap["key.root"]; !ok {
		t.Error("expected key.root attribute")
	}
	if _, ok := attrMap["key.operation"]; ok {
		t.Error("expected no key.operation attribute")
	}
}

// TestTracer_ContextPropagation verifies parent span is propagated.
func TestTracer_ContextPropagation(t *testing.T) {
	recorder, tp, tr := newRecordingTracer()

	parentCtx, parentSpan := tp.Tracer("test").Start(context.Background(), "parent")
	_, childSpan := tr.StartSpan(parentCtx, MetaFromKey(querykey.NewKey("todos", "list")))
	tr.EndSpan(childSpan, nil)
	parentSpan.End()

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}

	var child sdktrace.ReadOnlySpan
	for _, s := range spans {
		if s.Name() == "querykey.fetch.todos.list" {
			child = s
			break
		}
	}
	if child == nil {
		t.Fatal("child span not found")
	}

	if child.Parent().TraceID() != parentSpan.SpanContext().TraceID() {
		t.Error("child span should have same trace ID as parent")
	}
	if child.Parent().SpanID() != parentSpan.SpanContext().SpanID() {
		t.Error("child span should point at the parent span")
	}
}

// TestTracer_ErrorRecording verifies error sets span status and attribute.
func TestTracer_ErrorRecording(t *testing.T) {
	recorder, _, tr := newRecordingTracer()

	_, span := tr.StartSpan(context.Background(), MetaFromKey(querykey.NewKey("users", "all")))
	tr.EndSpan(span, errors.New("backend unavailable"))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	s := spans[0]
	if s.Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", s.Status().Code)
	}
	if s.Status().Description != "backend unavailable" {
		t.Errorf("unexpected status description %q", s.Status().Description)
	}
	if v := spanAttrs(s)["fetch.error"]; !v.AsBool() {
		t.Error("expected fetch.error=true")
	}
	if len(s.Events()) == 0 {
		t.Error("expected the error to be recorded as a span event")
	}
}
