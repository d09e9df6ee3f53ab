package observe

import (
	"context"
	"time"
)

// PhaseFunc runs one interceptor phase. It fills meta as it learns about the
// payload and returns the decision; err carries the internal cause behind a
// deny, if any, and never changes the decision.
type PhaseFunc func(ctx context.Context, meta *InvocationMeta) (Outcome, error)

// Middleware wraps interceptor phases with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Wrap returns a PhaseFunc safe for concurrent use.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
	now     func() time.Time
}

// NewMiddleware creates a Middleware. Nil components are replaced by no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NewTracer(nil)
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger, now: time.Now}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Logger returns the middleware's logger.
func (m *Middleware) Logger() Logger {
	return m.logger
}

// Run executes fn once under the middleware.
func (m *Middleware) Run(ctx context.Context, meta InvocationMeta, fn PhaseFunc) (Outcome, error) {
	ctx, span := m.tracer.StartSpan(ctx, meta)
	start := m.now()

	out, err := fn(ctx, &meta)

	duration := m.now().Sub(start)
	m.tracer.EndSpan(span, meta, out, err)
	m.metrics.RecordDecision(ctx, meta, out, duration)

	fields := []Field{
		F("phase", meta.Phase),
		F("decision", out.Decision),
		F("duration_ms", float64(duration)/float64(time.Millisecond)),
	}
	for _, f := range []Field{
		F("invocation_id", meta.ID),
		F("method", meta.Method),
		F("tool", meta.Tool),
		F("target", meta.Target),
		F("tenant_id", meta.Tenant),
		F("role", meta.Role),
		F("deny_kind", out.Kind),
	} {
		if f.Value != "" {
			fields = append(fields, f)
		}
	}

	switch {
	case err != nil:
		fields = append(fields, F("error", err))
		m.logger.Warn(ctx, "interceptor decision", fields...)
	case out.Decision == DecisionDeny:
		m.logger.Warn(ctx, "interceptor decision", fields...)
	default:
		m.logger.Info(ctx, "interceptor decision", fields...)
	}
	return out, err
}

// Wrap returns fn bound to the middleware.
func (m *Middleware) Wrap(fn PhaseFunc) func(ctx context.Context, meta InvocationMeta) (Outcome, error) {
	return func(ctx context.Context, meta InvocationMeta) (Outcome, error) {
		return m.Run(ctx, meta, fn)
	}
}
