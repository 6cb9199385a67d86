// Package exporters builds OpenTelemetry exporters by name.
package exporters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ErrEndpointNotConfigured is returned for otlp without an endpoint in the
// environment.
var ErrEndpointNotConfigured = errors.New("observe: endpoint not configured")

type (
	spanExporterFunc  func(ctx context.Context) (sdktrace.SpanExporter, error)
	metricsReaderFunc func(ctx context.Context) (sdkmetric.Reader, error)
)

// Empty names and "none" select no exporter.
var spanExporters = map[string]spanExporterFunc{
	"none": func(context.Context) (sdktrace.SpanExporter, error) { return nil, nil },
	"stdout": func(context.Context) (sdktrace.SpanExporter, error) {
		return stdouttrace.New(stdouttrace.WithWriter(os.Stdout))
	},
	"otlp": func(ctx context.Context) (sdktrace.SpanExporter, error) {
		if err := requireEndpoint("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"); err != nil {
			return nil, err
		}
		return otlptracegrpc.New(ctx)
	},
}

var metricsReaders = map[string]metricsReaderFunc{
	// Metrics are still collected so instruments work; they go nowhere.
	"none": func(context.Context) (sdkmetric.Reader, error) {
		return periodic(stdoutmetric.New(stdoutmetric.WithWriter(io.Discard)))
	},
	"stdout": func(context.Context) (sdkmetric.Reader, error) {
		return periodic(stdoutmetric.New(stdoutmetric.WithWriter(os.Stdout)))
	},
	"otlp": func(ctx context.Context) (sdkmetric.Reader, error) {
		if err := requireEndpoint("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"); err != nil {
			return nil, err
		}
		return periodic(otlpmetricgrpc.New(ctx))
	},
	// Registers with the default Prometheus registerer, so promhttp.Handler
	// serves it.
	"prometheus": func(context.Context) (sdkmetric.Reader, error) {
		exp, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("create Prometheus exporter: %w", err)
		}
		return exp, nil
	},
}

// TracingExporterNames lists the names NewTracingExporter accepts besides "".
func TracingExporterNames() []string { return slices.Sorted(maps.Keys(spanExporters)) }

// MetricsExporterNames lists the names NewMetricsReader accepts besides "".
func MetricsExporterNames() []string { return slices.Sorted(maps.Keys(metricsReaders)) }

// NewTracingExporter creates a span exporter by name. "none" and "" return
// a nil exporter.
func NewTracingExporter(ctx context.Context, name string) (sdktrace.SpanExporter, error) {
	if name == "" {
		name = "none"
	}
	build, ok := spanExporters[name]
	if !ok {
		return nil, fmt.Errorf("unknown exporter: %q", name)
	}
	return build(ctx)
}

// NewMetricsReader creates a metrics reader by name. "none" and "" return a
// reader that discards its output.
func NewMetricsReader(ctx context.Context, name string) (sdkmetric.Reader, error) {
	if name == "" {
		name = "none"
	}
	build, ok := metricsReaders[name]
	if !ok {
		return nil, fmt.Errorf("unknown metrics exporter: %q", name)
	}
	return build(ctx)
}

// requireEndpoint fails unless the generic or the signal-specific OTLP
// endpoint variable is set.
func requireEndpoint(signalVar string) error {
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" || os.Getenv(signalVar) != "" {
		return nil
	}
	return fmt.Errorf("%w: set OTEL_EXPORTER_OTLP_ENDPOINT or %s", ErrEndpointNotConfigured, signalVar)
}

func periodic(exp sdkmetric.Exporter, err error) (sdkmetric.Reader, error) {
	if err != nil {
		return nil, fmt.Errorf("create metrics exporter: %w", err)
	}
	return sdkmetric.NewPeriodicReader(exp), nil
}
