package health

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/graphcache/cache"
	"github.com/jonwraymond/graphcache/resilience"
	"github.com/jonwraymond/graphcache/storage"
)

// DefaultProbeKey is the storage key written by StorageChecker.
const DefaultProbeKey = "__graphcache_health_probe__"

// HydrationChecker reports the state of a GraphCache.
//
// Hydration still running, a failed hydration and a stale durable snapshot
// are all degraded: the cache keeps serving from memory in each case.
type HydrationChecker struct {
	cache *cache.GraphCache
}

// NewHydrationChecker creates a HydrationChecker for c.
func NewHydrationChecker(c *cache.GraphCache) *HydrationChecker {
	return &HydrationChecker{cache: c}
}

func (h *HydrationChecker) Name() string { return "hydration" }

func (h *HydrationChecker) Check(ctx context.Context) Result {
	if h.cache == nil {
		return Unhealthy("cache not configured", cache.ErrNilCache)
	}
	if !h.cache.Hydrated() {
		return Degraded("hydration in progress").WithDetails(map[string]any{"cache_key": h.cache.Key()})
	}

	stats, err := h.cache.Stats(ctx)
	if err != nil {
		return Unhealthy("cache stats unavailable", err)
	}
	details := map[string]any{
		"cache_key":        stats.CacheKey,
		"records":          stats.Records,
		"root_calls":       stats.RootCalls,
		"dirty":            stats.Dirty,
		"persists":         stats.Persists,
		"persist_failures": stats.PersistFailures,
	}
	if !stats.LastPersist.IsZero() {
		details["last_persist"] = stats.LastPersist.UTC().Format(time.RFC3339)
	}

	if err := h.cache.HydrationErr(); err != nil {
		details["hydration_error"] = err.Error()
		return Degraded("hydration failed, cache started empty").WithDetails(details)
	}
	if stats.Dirty && stats.PersistFailures > 0 {
		return Degraded("durable snapshot is stale").WithDetails(details)
	}
	return Healthy("cache hydrated").WithDetails(details)
}

// StorageChecker probes a storage.Adapter with a write, read and remove of a
// dedicated key.
type StorageChecker struct {
	adapter storage.Adapter
	key     string
}

// NewStorageChecker creates a StorageChecker. An empty key uses
// DefaultProbeKey.
func NewStorageChecker(adapter storage.Adapter, key string) *StorageChecker {
	if key == "" {
		key = DefaultProbeKey
	}
	return &StorageChecker{adapter: adapter, key: key}
}

func (s *StorageChecker) Name() string { return "storage" }

func (s *StorageChecker) Check(ctx context.Context) Result {
	if s.adapter == nil {
		return Unhealthy("storage not configured", ErrCheckFailed)
	}
	token := uuid.NewString()
	start := time.Now()

	if err := s.adapter.SetItem(ctx, s.key, token); err != nil {
		return Unhealthy("storage write failed", err)
	}
	got, ok, err := s.adapter.GetItem(ctx, s.key)
	if err != nil {
		return Unhealthy("storage read failed", err)
	}
	if !ok || got != token {
		return Unhealthy("storage read back different data", ErrProbeMismatch)
	}
	if err := s.adapter.RemoveItem(ctx, s.key); err != nil {
		return Degraded(fmt.Sprintf("storage probe not removed: %v", err))
	}
	return Healthy("storage round trip ok").WithDetails(map[string]any{
		"probe_key":  s.key,
		"latency_ms": float64(time.Since(start)) / float64(time.Millisecond),
	})
}

// CircuitChecker maps a circuit breaker's state to a status: closed is
// healthy, half-open degraded and open unhealthy.
type CircuitChecker struct {
	breaker *resilience.CircuitBreaker
}

// NewCircuitChecker creates a CircuitChecker. A nil breaker always reports
// healthy.
func NewCircuitChecker(cb *resilience.CircuitBreaker) *CircuitChecker {
	return &CircuitChecker{breaker: cb}
}

func (c *CircuitChecker) Name() string { return "circuit" }

func (c *CircuitChecker) Check(context.Context) Result {
	if c.breaker == nil {
		return Healthy("no circuit breaker configured")
	}
	state := c.breaker.State()
	details := map[string]any{
		"breaker":  c.breaker.Name(),
		"state":    state.String(),
		"failures": c.breaker.Failures(),
	}
	switch state {
	case resilience.StateOpen:
		return Unhealthy("storage circuit open", resilience.ErrCircuitOpen).WithDetails(details)
	case resilience.StateHalfOpen:
		return Degraded("storage circuit probing").WithDetails(details)
	default:
		return Healthy("storage circuit closed").WithDetails(details)
	}
}

var (
	_ Checker = (*HydrationChecker)(nil)
	_ Checker = (*StorageChecker)(nil)
	_ Checker = (*CircuitChecker)(nil)
)
