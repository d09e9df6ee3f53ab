package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names.
const (
	MetricDecisions = "gateway.interceptor.decisions"
	MetricDuration  = "gateway.interceptor.duration_ms"
)

// Metrics records interceptor decisions.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	RecordDecision(ctx context.Context, meta InvocationMeta, out Outcome, duration time.Duration)
}

type metricsImpl struct {
	decisions metric.Int64Counter
	duration  metric.Float64Histogram
}

// NewMetrics creates the interceptor instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	decisions, err := meter.Int64Counter(
		MetricDecisions,
		metric.WithDescription("Interceptor decisions by phase, outcome and deny kind"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		MetricDuration,
		metric.WithDescription("Interceptor invocation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{decisions: decisions, duration: duration}, nil
}

func (m *metricsImpl) RecordDecision(ctx context.Context, meta InvocationMeta, out Outcome, duration time.Duration) {
	// Tenant and tool stay off metric attributes to bound cardinality.
	opt := metric.WithAttributes(
		attribute.String("phase", meta.Phase),
		attribute.String("outcome", out.Decision),
		attribute.String("kind", out.Kind),
	)
	m.decisions.Add(ctx, 1, opt)
	m.duration.Record(ctx, float64(duration)/float64(time.Millisecond),
		metric.WithAttributes(attribute.String("phase", meta.Phase)))
}

type noopMetrics struct{}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics { return noopMetrics{} }

func (noopMetrics) RecordDecision(context.Context, InvocationMeta, Outcome, time.Duration) {}
