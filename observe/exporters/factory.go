// Package exporters builds OpenTelemetry span exporters and metric readers
// by name.
package exporters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var (
	// ErrUnknownExporter indicates an unsupported exporter name.
	ErrUnknownExporter = errors.New("unknown exporter")

	// ErrEndpointNotConfigured indicates the exporter's endpoint env var is unset.
	ErrEndpointNotConfigured = errors.New("endpoint not configured")
)

type options struct {
	writer     io.Writer
	registerer promclient.Registerer
}

// Option configures exporter construction.
type Option func(*options)

// WithWriter sets the destination of stdout exporters.
func WithWriter(w io.Writer) Option {
	return func(o *options) { o.writer = w }
}

// WithRegisterer sets where the prometheus exporter registers its collector.
// Nil keeps the default registerer.
func WithRegisterer(r promclient.Registerer) Option {
	return func(o *options) { o.registerer = r }
}

func apply(opts []Option) options {
	o := options{writer: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// NewTracingExporter creates a span exporter.
// Supported names: stdout, otlp, jaeger, none.
func NewTracingExporter(ctx context.Context, name string, opts ...Option) (sdktrace.SpanExporter, error) {
	o := apply(opts)
	switch name {
	case "stdout":
		return stdouttrace.New(stdouttrace.WithWriter(o.writer))

	case "otlp":
		if firstEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT") == "" {
			return nil, fmt.Errorf("otlp traces: %w: set OTEL_EXPORTER_OTLP_ENDPOINT or OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", ErrEndpointNotConfigured)
		}
		return otlptracegrpc.New(ctx)

	case "jaeger":
		// Jaeger ingests OTLP natively.
		endpoint := firstEnv("OTEL_EXPORTER_JAEGER_ENDPOINT")
		if endpoint == "" {
			return nil, fmt.Errorf("jaeger: %w: set OTEL_EXPORTER_JAEGER_ENDPOINT", ErrEndpointNotConfigured)
		}
		return otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithInsecure())

	case "none", "":
		return stdouttrace.New(stdouttrace.WithWriter(io.Discard))

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExporter, name)
	}
}

// NewMetricsReader creates a metric reader.
// Supported names: stdout, otlp, prometheus, none.
func NewMetricsReader(ctx context.Context, name string, opts ...Option) (sdkmetric.Reader, error) {
	o := apply(opts)
	switch name {
	case "stdout":
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(o.writer))
		if err != nil {
			return nil, fmt.Errorf("stdout metrics exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil

	case "otlp":
		if firstEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_METRICS_ENDPOINT") == "" {
			return nil, fmt.Errorf("otlp metrics: %w: set OTEL_EXPORTER_OTLP_ENDPOINT or OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", ErrEndpointNotConfigured)
		}
		exp, err := otlpmetricgrpc.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("otlp metrics exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil

	case "prometheus":
		var popts []prometheus.Option
		if o.registerer != nil {
			popts = append(popts, prometheus.WithRegisterer(o.registerer))
		}
		exp, err := prometheus.New(popts...)
		if err != nil {
			return nil, fmt.Errorf("prometheus exporter: %w", err)
		}
		return exp, nil

	case "none", "":
		return sdkmetric.NewManualReader(), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExporter, name)
	}
}
