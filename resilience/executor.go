package resilience

import (
	"context"
	"time"
)

// Executor composes resilience patterns around calls to one dependency.
type Executor struct {
	circuitBreaker *CircuitBreaker
	retry          *Retry
	bulkhead       *Bulkhead
	timeout        *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates a new resilience executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithCircuitBreaker adds a circuit breaker.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) { e.circuitBreaker = cb }
}

// WithRetry adds retries.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) { e.retry = r }
}

// WithBulkhead adds a concurrency cap.
func WithBulkhead(b *Bulkhead) ExecutorOption {
	return func(e *Executor) { e.bulkhead = b }
}

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = NewTimeout(d) }
}

// CircuitBreaker returns the configured breaker, or nil.
func (e *Executor) CircuitBreaker() *CircuitBreaker {
	return e.circuitBreaker
}

// Execute runs op through the configured patterns, outermost first:
// bulkhead, circuit breaker, retry, per-attempt timeout.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	if e == nil {
		return op(ctx)
	}
	execute := op

	if e.timeout != nil {
		inner := execute
		execute = func(ctx context.Context) error { return e.timeout.Execute(ctx, inner) }
	}
	if e.retry != nil {
		inner := execute
		execute = func(ctx context.Context) error { return e.retry.Execute(ctx, inner) }
	}
	if e.circuitBreaker != nil {
		inner := execute
		execute = func(ctx context.Context) error { return e.circuitBreaker.Execute(ctx, inner) }
	}
	if e.bulkhead != nil {
		inner := execute
		execute = func(ctx context.Context) error { return e.bulkhead.Execute(ctx, inner) }
	}
	return execute(ctx)
}
