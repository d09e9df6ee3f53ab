// Package observe provides logging, tracing and metrics for the
// authorization interceptors.
//
// Every interceptor phase runs through a Middleware that opens a span named
// gateway.interceptor.<phase>, records the decision counter and duration
// histogram, and writes one structured log line per invocation. Logging is
// backed by zap; tracing and metrics by OpenTelemetry.
package observe
