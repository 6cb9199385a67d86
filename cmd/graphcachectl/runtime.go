package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jonwraymond/graphcache/cache"
	"github.com/jonwraymond/graphcache/config"
	"github.com/jonwraymond/graphcache/observe"
	"github.com/jonwraymond/graphcache/resilience"
	"github.com/jonwraymond/graphcache/storage/driver"
)

// runtime is an opened cache with its storage stack and telemetry.
type runtime struct {
	cfg    *config.Config
	obs    observe.Observer
	logger observe.Logger
	stack  *driver.Stack
	cache  *cache.GraphCache
}

// openRuntime loads configuration and opens the cache it describes. Logs go
// to logOut. A failed hydration is logged and the empty cache is returned.
func openRuntime(ctx context.Context, opts *rootOptions, logOut io.Writer) (*runtime, error) {
	cfg, err := config.Load(ctx, opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.CacheKey != "" {
		cfg.Cache.Key = opts.CacheKey
	}
	key, err := cfg.CacheKey()
	if err != nil {
		return nil, err
	}
	policy, err := cfg.PersistPolicy()
	if err != nil {
		return nil, err
	}

	oc := cfg.ObserverConfig()
	oc.Logging.Output = logOut
	obs, err := observe.NewObserver(ctx, oc)
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, obs: obs, logger: obs.Logger()}

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		_ = rt.close(ctx)
		return nil, err
	}

	dc := cfg.DriverConfig()
	dc.Resilience.OnStateChange = func(name string, from, to resilience.State) {
		rt.logger.Warn(ctx, "storage circuit changed state",
			observe.Field{Key: "backend", Value: name},
			observe.Field{Key: "from", Value: from.String()},
			observe.Field{Key: "to", Value: to.String()})
	}
	dc.Resilience.OnRetry = func(attempt int, err error, delay time.Duration) {
		rt.logger.Debug(ctx, "retrying storage call",
			observe.Field{Key: "attempt", Value: attempt},
			observe.Field{Key: "error", Value: err.Error()},
			observe.Field{Key: "delay_ms", Value: delay.Milliseconds()})
	}
	rt.stack, err = driver.Open(ctx, dc)
	if err != nil {
		_ = rt.close(ctx)
		return nil, err
	}

	rt.cache, err = cache.New(ctx, cache.Options{
		CacheKey:   key,
		Storage:    rt.stack,
		Persist:    policy,
		Middleware: mw,
	})
	if err != nil {
		_ = rt.close(ctx)
		return nil, err
	}
	return rt, nil
}

// waitHydrated blocks until the cache has hydrated. Hydration errors are
// already logged by the cache; only ctx errors are returned.
func (rt *runtime) waitHydrated(ctx context.Context) error {
	err := rt.cache.WaitHydrated(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

// close flushes pending writes and releases storage and telemetry.
func (rt *runtime) close(ctx context.Context) error {
	var errs []error
	if rt.cache != nil {
		if err := rt.cache.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush: %w", err))
		}
	}
	if rt.stack != nil {
		if err := rt.stack.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	if rt.obs != nil {
		if err := rt.obs.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown telemetry: %w", err))
		}
	}
	return errors.Join(errs...)
}
