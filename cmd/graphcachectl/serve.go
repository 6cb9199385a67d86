package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/graphcache/auth"
	"github.com/jonwraymond/graphcache/health"
	"github.com/jonwraymond/graphcache/observe"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve health checks and metrics for the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx, opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = rt.close(context.WithoutCancel(ctx)) }()

			if addr == "" {
				addr = rt.cfg.Server.Addr
			}
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			return serve(ctx, rt, ln)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

// newServeMux registers the health endpoints and /metrics. The detailed
// health endpoints and /metrics require the configured role when auth is
// enabled.
func newServeMux(rt *runtime) *http.ServeMux {
	agg := health.NewAggregator(health.AggregatorConfig{Timeout: 5 * time.Second})
	agg.Register(health.NewHydrationChecker(rt.cache))
	agg.Register(health.NewStorageChecker(rt.stack, health.DefaultProbeKey))
	agg.Register(health.NewCircuitChecker(rt.stack.Breaker))

	authn := rt.cfg.Authenticator()
	role := rt.cfg.Server.Auth.Role
	guard := func(h http.Handler) http.Handler { return auth.Require(authn, role, h) }

	mux := http.NewServeMux()
	health.RegisterHandlers(mux, agg, guard)
	mux.Handle("GET /metrics", guard(promhttp.Handler()))
	return mux
}

// serve runs the HTTP server on ln until ctx is done, then shuts it down
// within the configured timeout.
func serve(ctx context.Context, rt *runtime, ln net.Listener) error {
	srv := &http.Server{
		Handler:           newServeMux(rt),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	rt.logger.Info(ctx, "serving", observe.Field{Key: "addr", Value: ln.Addr().String()})

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rt.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
