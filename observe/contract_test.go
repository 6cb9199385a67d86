package observe

import (
	"context"
	"testing"
	"time"
)

func TestObserverContract_Noops(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{ServiceName: "observe-test"})
	if err != nil {
		t.Fatalf("NewObserver failed: %v", err)
	}
	if obs.Tracer() == nil || obs.Meter() == nil || obs.Logger() == nil {
		t.Fatal("expected non-nil tracer, meter and logger")
	}
	if err := obs.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestMetricsContract_NoPanic(t *testing.T) {
	var m Metrics = noopMetrics{}
	m.RecordOp(context.Background(), OpMeta{Op: "noop"}, 10*time.Millisecond, nil)
	m.RecordSnapshot(context.Background(), OpMeta{Op: "noop"}, 10)
}

func TestTracerContract_NoPanic(t *testing.T) {
	tracer := newNoopTracer()
	_, span := tracer.StartSpan(context.Background(), OpMeta{Op: "noop"})
	tracer.EndSpan(span, nil)
}
