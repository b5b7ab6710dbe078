package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// RenderFunc is the signature of a block render wrapped by Middleware.
type RenderFunc func(ctx context.Context, meta BlockMeta) (string, error)

// Middleware wraps block rendering and query execution with tracing,
// metrics and logging.
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe RenderFunc.
//   - Context: Propagates context through tracing spans.
//   - Errors: Errors from wrapped functions are recorded and propagated unchanged.
//   - Ownership: Output is passed through without modification.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// NoopMiddleware returns a Middleware that records nothing.
func NoopMiddleware() *Middleware {
	return NewMiddleware(NewNoopTracer(), NewNoopMetrics(), NoopLogger())
}

// Logger returns the middleware's logger.
func (m *Middleware) Logger() Logger { return m.logger }

// Wrap wraps a RenderFunc with tracing, metrics and logging.
func (m *Middleware) Wrap(fn RenderFunc) RenderFunc {
	return func(ctx context.Context, meta BlockMeta) (string, error) {
		ctx, span := m.tracer.StartSpan(ctx, meta)
		start := time.Now()

		out, err := fn(ctx, meta)

		duration := time.Since(start)
		m.tracer.EndSpan(span, err)
		m.metrics.RecordRender(ctx, meta, duration, err)

		blockLogger := m.logger.WithBlock(meta)
		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Microseconds()) / 1000},
		}
		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			blockLogger.Error(ctx, "block render failed", fields...)
		} else {
			blockLogger.Debug(ctx, "block rendered", fields...)
		}

		return out, err
	}
}

// TraceQuery runs fn inside a query.<kind> span.
func (m *Middleware) TraceQuery(ctx context.Context, kind, key string, fn func(ctx context.Context) error) error {
	ctx, span := m.tracer.StartQuerySpan(ctx, kind, attribute.String("query.cache_key", key))
	err := fn(ctx)
	m.tracer.EndSpan(span, err)
	return err
}

// CacheLookup records a query cache hit or miss.
func (m *Middleware) CacheLookup(ctx context.Context, group string, hit bool) {
	m.metrics.RecordCacheLookup(ctx, group, hit)
	m.logger.Debug(ctx, "query cache lookup",
		Field{Key: "cache.group", Value: group},
		Field{Key: "hit", Value: hit},
	)
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	tracer := NewTracer(obs.Tracer())

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(tracer, metrics, obs.Logger()), nil
}
