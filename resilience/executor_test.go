package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestExecutor_Passthrough(t *testing.T) {
	testErr := errors.New("test error")
	err := NewExecutor().Execute(context.Background(), fail(testErr))
	if err != testErr {
		t.Errorf("Execute() error = %v, want %v", err, testErr)
	}
	if NewExecutor().CircuitBreaker() != nil {
		t.Error("CircuitBreaker() should be nil without WithCircuitBreaker")
	}
}

func TestExecutor_RetryThenSucceed(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1})
	e := NewExecutor(
		WithCircuitBreaker(cb),
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})),
		WithTimeout(time.Second),
	)

	calls := 0
	err := e.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	// Retries happen inside the breaker, so it only sees the final success.
	if cb.State() != StateClosed || cb.Failures() != 0 {
		t.Errorf("breaker state = %v, failures = %d", cb.State(), cb.Failures())
	}
	if e.CircuitBreaker() != cb {
		t.Error("CircuitBreaker() did not return the configured breaker")
	}
}

func TestExecutor_BreakerCountsExhaustedRetriesOnce(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 2})
	e := NewExecutor(
		WithCircuitBreaker(cb),
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})),
	)

	calls := 0
	_ = e.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("down")
	})
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if cb.Failures() != 1 {
		t.Errorf("Failures() = %d, want 1", cb.Failures())
	}

	_ = e.Execute(context.Background(), fail(errors.New("down")))
	if err := e.Execute(context.Background(), fail(nil)); err != ErrCircuitOpen {
		t.Errorf("Execute() = %v, want ErrCircuitOpen", err)
	}
}

func TestExecutor_TimeoutPerAttempt(t *testing.T) {
	e := NewExecutor(
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond})),
		WithTimeout(10*time.Millisecond),
	)

	calls := 0
	err := e.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})
	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestExecutor_OrderedAttemptsNeverOverlap(t *testing.T) {
	exec := NewExecutor(
		WithTimeout(10*time.Millisecond),
		WithRetry(NewRetry(RetryConfig{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
			RetryIf:      func(err error) bool { return errors.Is(err, ErrTimeout) },
		})),
	)

	var running, overlaps, calls atomic.Int32
	err := exec.ExecuteOrdered(context.Background(), func(ctx context.Context) error {
		calls.Add(1)
		if running.Add(1) > 1 {
			overlaps.Add(1)
		}
		defer running.Add(-1)
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		return ctx.Err()
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("ExecuteOrdered() error = %v, want ErrTimeout", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
	if overlaps.Load() != 0 {
		t.Errorf("%d attempts overlapped a previous one", overlaps.Load())
	}
	if running.Load() != 0 {
		t.Error("an attempt was still running after ExecuteOrdered returned")
	}
}
