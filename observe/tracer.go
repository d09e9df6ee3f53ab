package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Interceptor phases.
const (
	PhaseRequest  = "request"
	PhaseResponse = "response"
	PhaseEnrich   = "enrich"
)

// InvocationMeta describes one interceptor invocation. Phase is known up
// front; the remaining fields are filled in as the payload is parsed.
type InvocationMeta struct {
	ID     string // invocation id
	Phase  string
	Method string // JSON-RPC method
	Tool   string // bare tool name
	Target string // gateway target prefix
	Tenant string // caller tenant, once verified
	Role   string
}

// SpanName returns the span name for this invocation.
// Format: gateway.interceptor.<phase>
func (m InvocationMeta) SpanName() string {
	return "gateway.interceptor." + m.Phase
}

func (m InvocationMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String("interceptor.phase", m.Phase)}
	add := func(key, v string) {
		if v != "" {
			attrs = append(attrs, attribute.String(key, v))
		}
	}
	add("interceptor.invocation_id", m.ID)
	add("rpc.method", m.Method)
	add("tool.name", m.Tool)
	add("tool.target", m.Target)
	add("tenant.id", m.Tenant)
	add("auth.role", m.Role)
	return attrs
}

// Outcome is the result of one interceptor phase.
type Outcome struct {
	Decision string // allow, deny, passthrough, filtered
	Kind     string // deny kind; empty unless denied
}

// Decisions reported in Outcome.
const (
	DecisionAllow       = "allow"
	DecisionDeny        = "deny"
	DecisionPassthrough = "passthrough"
	DecisionFiltered    = "filtered"
)

// Tracer wraps OpenTelemetry tracing for interceptor phases.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan is best-effort and must not panic.
type Tracer interface {
	StartSpan(ctx context.Context, meta InvocationMeta) (context.Context, trace.Span)
	EndSpan(span trace.Span, meta InvocationMeta, out Outcome, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer. Nil yields a no-op tracer.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		t = tracenoop.NewTracerProvider().Tracer("noop")
	}
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta InvocationMeta) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(meta.attributes()...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// EndSpan refreshes the attributes learned during the phase, then records
// the decision. A deny is not a span error; err is.
func (t *tracerImpl) EndSpan(span trace.Span, meta InvocationMeta, out Outcome, err error) {
	span.SetAttributes(meta.attributes()...)
	span.SetAttributes(attribute.String("interceptor.decision", out.Decision))
	if out.Kind != "" {
		span.SetAttributes(attribute.String("interceptor.deny_kind", out.Kind))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
