package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records block render and query cache metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordRender records a block render with duration and error status.
	RecordRender(ctx context.Context, meta BlockMeta, duration time.Duration, err error)

	// RecordCacheLookup records an object cache lookup for a query group.
	RecordCacheLookup(ctx context.Context, group string, hit bool)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter        metric.Meter
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	lookupCount  metric.Int64Counter
}

// NewMetrics creates a new Metrics instance with the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	return newMetrics(meter)
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	totalCount, err := meter.Int64Counter(
		"block.render.total",
		metric.WithDescription("Total number of block renders"),
		metric.WithUnit("{render}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"block.render.errors",
		metric.WithDescription("Total number of failed block renders"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"block.render.duration_ms",
		metric.WithDescription("Block render duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	lookupCount, err := meter.Int64Counter(
		"query.cache.lookups",
		metric.WithDescription("Query cache lookups by group and outcome"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:        meter,
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		lookupCount:  lookupCount,
	}, nil
}

// RecordRender records metrics for a block render.
func (m *metricsImpl) RecordRender(ctx context.Context, meta BlockMeta, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("block.name", meta.Name),
	}
	if ns := meta.Namespace(); ns != "" {
		attrs = append(attrs, attribute.String("block.namespace", ns))
	}

	opt := metric.WithAttributes(attrs...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}

	durationMs := float64(duration.Microseconds()) / 1000
	m.durationHist.Record(ctx, durationMs, opt)
}

// RecordCacheLookup records a query cache hit or miss.
func (m *metricsImpl) RecordCacheLookup(ctx context.Context, group string, hit bool) {
	m.lookupCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache.group", group),
		attribute.Bool("hit", hit),
	))
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

// NewNoopMetrics returns a Metrics that records nothing.
func NewNoopMetrics() Metrics { return &noopMetrics{} }

func (m *noopMetrics) RecordRender(ctx context.Context, meta BlockMeta, duration time.Duration, err error) {
}

func (m *noopMetrics) RecordCacheLookup(ctx context.Context, group string, hit bool) {}
