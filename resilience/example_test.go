package resilience_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/gatewayauthz/resilience"
)

func ExampleNewCircuitBreaker() {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:         "policy-engine",
		MaxFailures:  2,
		ResetTimeout: time.Minute,
	})
	ctx := context.Background()
	unavailable := errors.New("service unavailable")

	fmt.Println("initial:", cb.State())
	for range 2 {
		_ = cb.Execute(ctx, func(context.Context) error { return unavailable })
	}
	fmt.Println("after failures:", cb.State())

	err := cb.Execute(ctx, func(context.Context) error { return nil })
	fmt.Println("rejected:", errors.Is(err, resilience.ErrCircuitOpen))
	// Output:
	// initial: closed
	// after failures: open
	// rejected: true
}

func ExamplePermanent() {
	r := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
	})

	attempts := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		attempts++
		return resilience.Permanent(errors.New("validation failed"))
	})
	fmt.Println("attempts:", attempts)
	fmt.Println("error:", err)
	// Output:
	// attempts: 1
	// error: validation failed
}
