package resilience

import (
	"context"
	"errors"
	"time"
)

// Timeout bounds the duration of an operation.
type Timeout struct {
	d time.Duration
}

// NewTimeout creates a timeout wrapper. A non-positive d defaults to 30s.
func NewTimeout(d time.Duration) *Timeout {
	if d <= 0 {
		d = 30 * time.Second
	}
	return &Timeout{d: d}
}

// Duration returns the configured bound.
func (t *Timeout) Duration() time.Duration {
	return t.d
}

// Execute runs op with a derived deadline. It returns ErrTimeout when the
// bound elapses first, and the parent's error when the parent is cancelled.
// op keeps running in the background after a timeout and must honor ctx.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- op(ctx)
	}()

	select {
	case err := <-done:
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == context.DeadlineExceeded {
			return ErrTimeout
		}
		return err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return ErrTimeout
		}
		return ctx.Err()
	}
}

// ExecuteWithTimeout runs op bounded by d.
func ExecuteWithTimeout(ctx context.Context, d time.Duration, op func(context.Context) error) error {
	return NewTimeout(d).Execute(ctx, op)
}
