package trace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGenerateTraceID(t *testing.T) {
	id := generateTraceID()
	if len(id) != 32 {
		t.Errorf("trace ID should be 32 chars, got %d", len(id))
	}
}

func TestGenerateSpanID(t *testing.T) {
	id := generateSpanID()
	if len(id) != 16 {
		t.Errorf("span ID should be 16 chars, got %d", len(id))
	}
}

func TestIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := generateTraceID()
		if seen[id] {
			t.Error("generated duplicate trace ID")
		}
		seen[id] = true
	}
}

func TestNewChild(t *testing.T) {
	parent := New()
	child := NewChild(parent)

	if child.TraceID != parent.TraceID {
		t.Error("child should inherit trace ID")
	}
	if child.SpanID == parent.SpanID {
		t.Error("child should have new span ID")
	}
	if child.ParentSpanID != parent.SpanID {
		t.Error("child's parent should be parent's span ID")
	}
}

func TestContextPropagation(t *testing.T) {
	tc := New()
	ctx := WithContext(context.Background(), tc)

	extracted, ok := FromContext(ctx)
	if !ok {
		t.Fatal("should extract trace context")
	}
	if extracted.TraceID != tc.TraceID {
		t.Error("extracted trace ID mismatch")
	}
}

func TestEnsureContext(t *testing.T) {
	ctx, tc := EnsureContext(context.Background())
	if len(tc.TraceID) != 32 {
		t.Error("should create trace ID")
	}

	_, tc2 := EnsureContext(ctx)
	if tc2.TraceID != tc.TraceID {
		t.Error("should return existing trace")
	}
}

func TestStartSpan(t *testing.T) {
	ctx := context.Background()
	ctx, span := StartSpan(ctx, "test_span")

	if span.Name != "test_span" {
		t.Error("span name mismatch")
	}
	if span.StartTime.IsZero() {
		t.Error("span should have start time")
	}

	span.SetAttr("key", "value")
	span.End()

	if span.EndTime.IsZero() {
		t.Error("span should have end time")
	}
	if span.Duration() <= 0 {
		t.Error("span should have positive duration")
	}
	if span.Attrs["key"] != "value" {
		t.Error("span attribute mismatch")
	}
	_ = ctx
}

func TestSpanNested(t *testing.T) {
	ctx := context.Background()
	ctx, parent := StartSpan(ctx, "parent")
	_, child := StartSpan(ctx, "child")

	if child.Ctx.TraceID != parent.Ctx.TraceID {
		t.Error("child should inherit trace ID")
	}
	if child.Ctx.ParentSpanID != parent.Ctx.SpanID {
		t.Error("child's parent should be parent's span")
	}
}

func TestMiddlewareCreatesContext(t *testing.T) {
	var got Context
	var found bool
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, found = FromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if !found {
		t.Fatal("middleware should inject trace context")
	}
	if len(got.TraceID) != 32 {
		t.Error("middleware should generate trace ID")
	}
}

func TestMiddlewarePropagatesHeader(t *testing.T) {
	var got Context
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(TraceIDKey, "abc123")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got.TraceID != "abc123" {
		t.Errorf("trace ID = %q, want abc123", got.TraceID)
	}
}

func TestExtractFromJSON(t *testing.T) {
	tc, ok := ExtractFromJSON([]byte(`{"trace_id":"t1"}`))
	if !ok || tc.TraceID != "t1" {
		t.Errorf("ExtractFromJSON = (%v, %v), want trace t1", tc, ok)
	}

	_, ok = ExtractFromJSON([]byte(`{}`))
	if ok {
		t.Error("missing trace_id should report not found")
	}
}
