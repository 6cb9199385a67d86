package health

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"
)

func fixed(name string, r Result) Checker {
	return NewCheckerFunc(name, func(context.Context) Result { return r })
}

func TestNewAggregator_Defaults(t *testing.T) {
	if got := NewAggregator().config.Timeout; got != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", got)
	}
	if got := NewAggregator(AggregatorConfig{Timeout: -1}).config.Timeout; got != 10*time.Second {
		t.Errorf("Timeout(-1) = %v, want 10s", got)
	}
}

func TestAggregator_RegisterUnregister(t *testing.T) {
	agg := NewAggregator()
	agg.Register(fixed("storage", Healthy("ok")))
	agg.Register(fixed("circuit", Healthy("ok")))
	agg.Register(fixed("storage", Degraded("replaced")))

	if got := agg.CheckerNames(); !reflect.DeepEqual(got, []string{"circuit", "storage"}) {
		t.Errorf("CheckerNames() = %v", got)
	}
	r, err := agg.Check(context.Background(), "storage")
	if err != nil || r.Status != StatusDegraded {
		t.Errorf("Check(storage) = %v, %v", r, err)
	}

	agg.Unregister("storage")
	if _, err := agg.Check(context.Background(), "storage"); !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("Check(removed) error = %v, want ErrCheckerNotFound", err)
	}
}

func TestAggregator_CheckAll(t *testing.T) {
	agg := NewAggregator()
	agg.Register(fixed("a", Healthy("ok")))
	agg.Register(fixed("b", Degraded("slow")))

	results := agg.CheckAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("CheckAll() = %d results, want 2", len(results))
	}
	for name, r := range results {
		if r.Duration < 0 || r.Timestamp.IsZero() {
			t.Errorf("%s: Duration = %v, Timestamp = %v", name, r.Duration, r.Timestamp)
		}
	}
	if got := OverallStatus(results); got != StatusDegraded {
		t.Errorf("OverallStatus() = %v, want degraded", got)
	}
}

func TestAggregator_Timeout(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{Timeout: 20 * time.Millisecond})
	agg.Register(NewCheckerFunc("stuck", func(ctx context.Context) Result {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return Healthy("too late")
	}))

	r := agg.CheckAll(context.Background())["stuck"]
	if r.Status != StatusUnhealthy || !errors.Is(r.Error, ErrCheckTimeout) {
		t.Errorf("stuck result = %+v, want timeout", r)
	}
}

func TestAggregator_MaxConcurrent(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{MaxConcurrent: 1})
	var running, peak atomic.Int32
	for _, name := range []string{"a", "b", "c"} {
		agg.Register(NewCheckerFunc(name, func(context.Context) Result {
			n := running.Add(1)
			defer running.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			return Healthy("ok")
		}))
	}
	agg.CheckAll(context.Background())
	if peak.Load() != 1 {
		t.Errorf("peak concurrency = %d, want 1", peak.Load())
	}
}

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		name    string
		results map[string]Result
		want    Status
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", map[string]Result{"a": Healthy(""), "b": Healthy("")}, StatusHealthy},
		{"one degraded", map[string]Result{"a": Healthy(""), "b": Degraded("")}, StatusDegraded},
		{"unhealthy wins", map[string]Result{"a": Degraded(""), "b": Unhealthy("", nil)}, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OverallStatus(tt.results); got != tt.want {
				t.Errorf("OverallStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}
