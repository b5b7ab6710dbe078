package observe

import (
	"context"
	"errors"
	"testing"
)

func TestMiddleware_SuccessPath(t *testing.T) {
	tracer, spans := newRecordingTracer()
	metrics, reader := newRecordingMetrics(t)
	rec := NewRecorder()

	mw := NewMiddleware(tracer, metrics, rec)
	wrapped := mw.Wrap(func(ctx context.Context, meta BlockMeta) (string, error) {
		return "<p>ok</p>", nil
	})

	out, err := wrapped(context.Background(), BlockMeta{Name: "core/paragraph"})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if out != "<p>ok</p>" {
		t.Errorf("output changed: %q", out)
	}

	ended := spans.Ended()
	if len(ended) != 1 || ended[0].Name() != "block.render.core.paragraph" {
		t.Fatalf("unexpected spans: %v", ended)
	}
	if findMetric(collect(t, reader), "block.render.total") == nil {
		t.Error("block.render.total metric not found")
	}
	entries := rec.Entries()
	if len(entries) != 1 || entries[0].Level != LevelDebug || entries[0].Block != "core/paragraph" {
		t.Errorf("unexpected log entries: %+v", entries)
	}
}

func TestMiddleware_ErrorPath(t *testing.T) {
	tracer, spans := newRecordingTracer()
	metrics, reader := newRecordingMetrics(t)
	rec := NewRecorder()
	testErr := errors.New("callback failed")

	mw := NewMiddleware(tracer, metrics, rec)
	wrapped := mw.Wrap(func(ctx context.Context, meta BlockMeta) (string, error) {
		return "", testErr
	})

	_, err := wrapped(context.Background(), BlockMeta{Name: "acme/broken"})
	if !errors.Is(err, testErr) {
		t.Fatalf("expected %v, got %v", testErr, err)
	}

	var blockError bool
	for _, kv := range spans.Ended()[0].Attributes() {
		if string(kv.Key) == "block.error" {
			blockError = kv.Value.AsBool()
		}
	}
	if !blockError {
		t.Error("expected block.error=true on failed render")
	}

	errMetric := findMetric(collect(t, reader), "block.render.errors")
	if errMetric == nil || sumValue(errMetric) != 1 {
		t.Errorf("expected block.render.errors=1, got %v", errMetric)
	}

	entries := rec.Entries()
	if len(entries) != 1 || entries[0].Level != LevelError {
		t.Fatalf("expected one error entry, got %+v", entries)
	}
	if msg, _ := entries[0].Field("error"); msg != "callback failed" {
		t.Errorf("expected error field, got %v", msg)
	}
}

func TestMiddleware_TraceQuery(t *testing.T) {
	tracer, spans := newRecordingTracer()
	mw := NewMiddleware(tracer, NewNoopMetrics(), NoopLogger())

	called := false
	err := mw.TraceQuery(context.Background(), "posts", "wp_query:abc:1", func(ctx context.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Fatalf("expected fn to run without error, got %v", err)
	}
	if name := spans.Ended()[0].Name(); name != "query.posts" {
		t.Errorf("unexpected span name %q", name)
	}
}

func TestMiddleware_CacheLookup(t *testing.T) {
	metrics, reader := newRecordingMetrics(t)
	mw := NewMiddleware(NewNoopTracer(), metrics, NoopLogger())

	mw.CacheLookup(context.Background(), "term-queries", true)

	if m := findMetric(collect(t, reader), "query.cache.lookups"); m == nil || sumValue(m) != 1 {
		t.Errorf("expected one lookup, got %v", m)
	}
}
