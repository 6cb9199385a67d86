// Package resilience wraps calls to a durable backend with retry, timeout
// and circuit breaking.
//
// The graph cache holds its exclusive lock while a snapshot is persisted, so
// a slow or failing backend stalls every queued operation. These wrappers
// bound that stall:
//
//   - Retry re-runs a failed call with exponential backoff.
//   - Timeout abandons a call that runs past its deadline.
//   - CircuitBreaker stops calling a backend that keeps failing and lets a
//     single probe through after a cool-down.
//
// Executor composes them in a fixed order:
//
//	exec := resilience.NewExecutor(
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Name: "sqlite"})),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 3})),
//	    resilience.WithTimeout(2*time.Second),
//	)
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    return adapter.SetItem(ctx, key, blob)
//	})
package resilience
