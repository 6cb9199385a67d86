package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestMetrics_RecordOp(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	meta := OpMeta{Op: "write_field", CacheKey: "k", NodeID: "n1"}

	m.RecordOp(ctx, meta, 3*time.Millisecond, nil)
	m.RecordOp(ctx, meta, 5*time.Millisecond, errors.New("boom"))

	rm := collect(t, reader)
	if got := sumValue(t, rm, MetricOpTotal); got != 2 {
		t.Errorf("%s = %d, want 2", MetricOpTotal, got)
	}
	if got := sumValue(t, rm, MetricOpErrors); got != 1 {
		t.Errorf("%s = %d, want 1", MetricOpErrors, got)
	}

	hist := findMetric(rm, MetricOpDuration)
	if hist == nil {
		t.Fatalf("%s not found", MetricOpDuration)
	}
	data, ok := hist.Data.(metricdata.Histogram[float64])
	if !ok || len(data.DataPoints) != 1 || data.DataPoints[0].Count != 2 {
		t.Fatalf("%s = %+v", MetricOpDuration, hist.Data)
	}
	if data.DataPoints[0].Sum != 8 {
		t.Errorf("duration sum = %v, want 8", data.DataPoints[0].Sum)
	}
}

func TestMetrics_NodeIDIsNotAnAttribute(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.RecordOp(context.Background(), OpMeta{Op: "read_node", NodeID: "a"}, 0, nil)
	m.RecordOp(context.Background(), OpMeta{Op: "read_node", NodeID: "b"}, 0, nil)

	sum := findMetric(collect(t, reader), MetricOpTotal).Data.(metricdata.Sum[int64])
	if len(sum.DataPoints) != 1 {
		t.Errorf("got %d data points, want 1 (node id must not split series)", len(sum.DataPoints))
	}
	if _, ok := sum.DataPoints[0].Attributes.Value("cache.node_id"); ok {
		t.Error("cache.node_id attribute present")
	}
}

func TestMetrics_RecordSnapshot(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.RecordSnapshot(context.Background(), OpMeta{Op: "persist"}, 1024)

	hist := findMetric(collect(t, reader), MetricSnapshotBytes)
	if hist == nil {
		t.Fatalf("%s not found", MetricSnapshotBytes)
	}
	data := hist.Data.(metricdata.Histogram[int64])
	if data.DataPoints[0].Sum != 1024 {
		t.Errorf("sum = %d, want 1024", data.DataPoints[0].Sum)
	}
}
