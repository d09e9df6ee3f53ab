package observe

import "errors"

// Config.Validate failures. They are wrapped with the offending value.
var (
	ErrMissingServiceName     = errors.New("observe: service_name must be set")
	ErrInvalidSamplePct       = errors.New("observe: tracing sample_pct outside [0, 1]")
	ErrInvalidTracingExporter = errors.New("observe: unsupported tracing exporter")
	ErrInvalidMetricsExporter = errors.New("observe: unsupported metrics exporter")
	ErrInvalidLogLevel        = errors.New("observe: unsupported log level")
)

// ErrNilObserver is returned by MiddlewareFromObserver(nil).
var ErrNilObserver = errors.New("observe: nil observer")

// Accepted Config values. The empty string selects the default.
var (
	ValidTracingExporters = []string{"", "none", "stdout", "otlp", "jaeger"}
	ValidMetricsExporters = []string{"", "none", "stdout", "otlp", "prometheus"}
	ValidLogLevels        = []string{"", "debug", "info", "warn", "error"}
)

// RedactedFields are log field keys, compared case-insensitively, whose
// values are replaced with RedactedValue. Interceptor payloads carry bearer
// tokens in their headers, so raw bodies are redacted too.
var RedactedFields = []string{
	"authorization",
	"token",
	"id_token",
	"access_token",
	"refresh_token",
	"password",
	"secret",
	"api_key",
	"credential",
	"body",
}
