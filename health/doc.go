// Package health reports whether a graph cache process can serve.
//
// A Checker inspects one component and returns a Result with a Status of
// healthy, degraded, or unhealthy. The package ships checkers for cache
// hydration, a storage round-trip probe, and the storage circuit breaker.
// An Aggregator runs a set of checkers under one deadline and folds their
// results into an overall status.
//
// # HTTP Endpoints
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, agg)
//
// registers /healthz (liveness, always OK), /readyz (overall status as
// plain text) and /health plus /health/{name} (JSON details).
package health
