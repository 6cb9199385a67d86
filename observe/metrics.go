package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names.
const (
	MetricOpTotal       = "graphcache.op.total"
	MetricOpErrors      = "graphcache.op.errors"
	MetricOpDuration    = "graphcache.op.duration_ms"
	MetricSnapshotBytes = "graphcache.snapshot.bytes"
)

// Metrics records cache operation metrics. Node ids are never used as
// attributes.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordOp records one operation with its duration and outcome.
	RecordOp(ctx context.Context, meta OpMeta, duration time.Duration, err error)

	// RecordSnapshot records the size of a persisted or hydrated snapshot.
	RecordSnapshot(ctx context.Context, meta OpMeta, size int)
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	snapshotHist metric.Int64Histogram
}

// NewMetrics creates the cache instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		MetricOpTotal,
		metric.WithDescription("Total number of cache operations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		MetricOpErrors,
		metric.WithDescription("Total number of failed cache operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		MetricOpDuration,
		metric.WithDescription("Cache operation duration including lock wait"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	snapshotHist, err := meter.Int64Histogram(
		MetricSnapshotBytes,
		metric.WithDescription("Size of persisted cache snapshots"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		snapshotHist: snapshotHist,
	}, nil
}

func attrsFor(meta OpMeta) metric.MeasurementOption {
	attrs := []attribute.KeyValue{attribute.String("cache.op", meta.Op)}
	if meta.CacheKey != "" {
		attrs = append(attrs, attribute.String("cache.key", meta.CacheKey))
	}
	return metric.WithAttributes(attrs...)
}

func (m *metricsImpl) RecordOp(ctx context.Context, meta OpMeta, duration time.Duration, err error) {
	opt := attrsFor(meta)
	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration)/float64(time.Millisecond), opt)
}

func (m *metricsImpl) RecordSnapshot(ctx context.Context, meta OpMeta, size int) {
	m.snapshotHist.Record(ctx, int64(size), attrsFor(meta))
}

type noopMetrics struct{}

func (noopMetrics) RecordOp(context.Context, OpMeta, time.Duration, error) {}
func (noopMetrics) RecordSnapshot(context.Context, OpMeta, int)             {}
