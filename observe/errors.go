package observe

import (
	"errors"

	"github.com/jonwraymond/graphcache/observe/exporters"
)

var (
	ErrMissingServiceName     = errors.New("observe: service name is required")
	ErrInvalidSamplePct       = errors.New("observe: sample percentage must be between 0.0 and 1.0")
	ErrInvalidTracingExporter = errors.New("observe: invalid tracing exporter")
	ErrInvalidMetricsExporter = errors.New("observe: invalid metrics exporter")
	ErrInvalidLogLevel        = errors.New("observe: invalid log level")

	// ErrNilObserver indicates a nil Observer was provided.
	ErrNilObserver = errors.New("observe: observer is nil")

	// ErrEndpointNotConfigured indicates an OTLP exporter was selected
	// without an endpoint in the environment.
	ErrEndpointNotConfigured = exporters.ErrEndpointNotConfigured
)

// Accepted config names. The empty string means the default.
var (
	ValidTracingExporters = append(exporters.TracingExporterNames(), "")
	ValidMetricsExporters = append(exporters.MetricsExporterNames(), "")
	ValidLogLevels        = []string{"debug", "info", "warn", "error", ""}
)

// RedactedFields lists field keys whose values are never written to logs.
// Snapshot payloads and field values can carry user data.
var RedactedFields = []string{
	"value",
	"snapshot",
	"password",
	"secret",
	"token",
	"dsn",
	"api_key",
	"credential",
}
