package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// BackoffStrategy defines how delays grow between retries.
type BackoffStrategy int

const (
	// BackoffExponential multiplies the delay each attempt.
	BackoffExponential BackoffStrategy = iota
	// BackoffConstant uses the same delay for all retries.
	BackoffConstant
)

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	// Default: 3
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	// Default: 50ms
	InitialDelay time.Duration

	// MaxDelay caps the delay between retries.
	// Default: 2s
	MaxDelay time.Duration

	// Multiplier is the exponential growth factor.
	// Default: 2.0
	Multiplier float64

	// Strategy is the backoff strategy.
	// Default: BackoffExponential
	Strategy BackoffStrategy

	// Jitter randomizes delays by up to 25%.
	Jitter bool

	// RetryIf decides whether an error is retryable.
	// Default: every non-permanent error.
	RetryIf func(err error) bool

	// OnRetry is called before each retry attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry re-runs failed operations with backoff.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a new retry handler.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 50 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 2 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.RetryIf == nil {
		config.RetryIf = func(err error) bool { return err != nil }
	}
	return &Retry{config: config}
}

func (r *Retry) backOff() backoff.BackOff {
	if r.config.Strategy == BackoffConstant {
		return backoff.NewConstantBackOff(r.config.InitialDelay)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.config.InitialDelay
	b.MaxInterval = r.config.MaxDelay
	b.Multiplier = r.config.Multiplier
	b.RandomizationFactor = 0
	if r.config.Jitter {
		b.RandomizationFactor = 0.25
	}
	return b
}

// Execute runs op until it succeeds, returns a non-retryable error, the
// attempts are exhausted, or ctx is done.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := op(ctx)
		if err == nil {
			return struct{}{}, nil
		}
		if IsPermanent(err) || !r.config.RetryIf(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(r.backOff()),
		backoff.WithMaxTries(uint(r.config.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, delay time.Duration) {
			if r.config.OnRetry != nil {
				r.config.OnRetry(attempt, err, delay)
			}
		}),
	)
	if err != nil && ctx.Err() != nil && !errors.Is(err, ctx.Err()) {
		return ctx.Err()
	}
	var perm *permanentError
	if errors.As(err, &perm) {
		return perm.err
	}
	return err
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}
