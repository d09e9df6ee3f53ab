// Package resilience guards calls to the pipeline's external dependencies:
// the JWKS endpoint, the policy store and the policy decision service.
//
// A CircuitBreaker stops calling a failing dependency, Retry re-runs
// transient failures with backoff, a Bulkhead caps concurrent calls and a
// Timeout bounds each attempt. Executor composes them:
//
//	exec := resilience.NewExecutor(
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	        Name: "policystore",
//	    })),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 3})),
//	    resilience.WithTimeout(2*time.Second),
//	)
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    return lookup(ctx)
//	})
//
// Every error from an exhausted or open guard is an error to the caller; the
// interceptors treat such errors as deny.
package resilience
