package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newRecordingMetrics(t *testing.T) (Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumValue(m *metricdata.Metrics) int64 {
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		return -1
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_RecordRender(t *testing.T) {
	m, reader := newRecordingMetrics(t)
	ctx := context.Background()
	meta := BlockMeta{Name: "core/latest-posts"}

	m.RecordRender(ctx, meta, 3*time.Millisecond, nil)
	m.RecordRender(ctx, meta, 5*time.Millisecond, errors.New("boom"))

	rm := collect(t, reader)

	total := findMetric(rm, "block.render.total")
	if total == nil || sumValue(total) != 2 {
		t.Fatalf("expected block.render.total=2, got %v", total)
	}
	errs := findMetric(rm, "block.render.errors")
	if errs == nil || sumValue(errs) != 1 {
		t.Fatalf("expected block.render.errors=1, got %v", errs)
	}
	if findMetric(rm, "block.render.duration_ms") == nil {
		t.Fatal("block.render.duration_ms metric not found")
	}
}

func TestMetrics_RecordCacheLookup(t *testing.T) {
	m, reader := newRecordingMetrics(t)
	ctx := context.Background()

	m.RecordCacheLookup(ctx, "post-queries", false)
	m.RecordCacheLookup(ctx, "post-queries", true)
	m.RecordCacheLookup(ctx, "post-queries", true)

	lookups := findMetric(collect(t, reader), "query.cache.lookups")
	if lookups == nil {
		t.Fatal("query.cache.lookups metric not found")
	}
	sum := lookups.Data.(metricdata.Sum[int64])
	if len(sum.DataPoints) != 2 {
		t.Fatalf("expected hit and miss series, got %d", len(sum.DataPoints))
	}
	if sumValue(lookups) != 3 {
		t.Errorf("expected 3 lookups, got %d", sumValue(lookups))
	}
}

func TestMetricsContract_NoPanic(t *testing.T) {
	m := NewNoopMetrics()
	m.RecordRender(context.Background(), BlockMeta{Name: "core/noop"}, time.Millisecond, nil)
	m.RecordCacheLookup(context.Background(), "g", true)
}
