// Package observe provides the logging, tracing and metrics used by the
// graph cache.
//
// Every cache operation runs through a [Middleware], which opens a span
// named graphcache.<op>, records graphcache.op.* metrics and writes one
// structured log line. The [Observer] builds the OpenTelemetry providers
// from [Config]; without one, callers use [NopMiddleware].
package observe
