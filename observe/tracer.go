package observe

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// BlockMeta contains metadata about a block type for telemetry purposes.
type BlockMeta struct {
	Name     string // Canonical block name, namespace/slug (required)
	Dynamic  bool   // Whether the block has a render callback
	Category string // Block category (optional)
}

// Namespace returns the namespace part of the block name.
func (m BlockMeta) Namespace() string {
	ns, _, ok := strings.Cut(m.Name, "/")
	if !ok {
		return ""
	}
	return ns
}

// Slug returns the name without its namespace.
func (m BlockMeta) Slug() string {
	if _, slug, ok := strings.Cut(m.Name, "/"); ok {
		return slug
	}
	return m.Name
}

// SpanName returns the deterministic span name for this block.
// Format: block.render.<namespace>.<slug> or block.render.<slug>
func (m BlockMeta) SpanName() string {
	if ns := m.Namespace(); ns != "" {
		return "block.render." + ns + "." + m.Slug()
	}
	return "block.render." + m.Slug()
}

// Validate reports whether the metadata can label telemetry.
func (m BlockMeta) Validate() error {
	if m.Name == "" {
		return ErrMissingBlockName
	}
	return nil
}

// Tracer wraps OpenTelemetry tracing with block and query span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: spans are children of the span carried by ctx.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a block render.
	StartSpan(ctx context.Context, meta BlockMeta) (context.Context, trace.Span)

	// StartQuerySpan starts a span named query.<kind>.
	StartQuerySpan(ctx context.Context, kind string, attrs ...attribute.KeyValue) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a new Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with block metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta BlockMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("block.name", meta.Name),
		attribute.Bool("block.dynamic", meta.Dynamic),
		attribute.Bool("block.error", false), // Updated in EndSpan on error
	}
	if ns := meta.Namespace(); ns != "" {
		attrs = append(attrs, attribute.String("block.namespace", ns))
	}
	if meta.Category != "" {
		attrs = append(attrs, attribute.String("block.category", meta.Category))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartQuerySpan starts a span for a cached query.
func (t *tracerImpl) StartQuerySpan(ctx context.Context, kind string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "query."+kind,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("block.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// noopTracer is a tracer that does nothing.
type noopTracer struct {
	noop trace.Tracer
}

// NewNoopTracer creates a no-op tracer.
func NewNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta BlockMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) StartQuerySpan(ctx context.Context, kind string, _ ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.noop.Start(ctx, "query."+kind)
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
