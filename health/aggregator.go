package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// AggregatorConfig configures the health aggregator.
type AggregatorConfig struct {
	// Timeout bounds each CheckAll run.
	// Default: 5 seconds
	Timeout time.Duration
}

type registration struct {
	checker  Checker
	optional bool
}

// Aggregator combines health checkers. Required checkers decide readiness;
// a failing optional checker only degrades the overall status.
type Aggregator struct {
	config AggregatorConfig
	mu     sync.RWMutex
	checks map[string]registration
	order  []string
}

// NewAggregator creates a new health aggregator.
func NewAggregator(config ...AggregatorConfig) *Aggregator {
	cfg := AggregatorConfig{}
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Aggregator{config: cfg, checks: make(map[string]registration)}
}

// Register adds a required checker.
func (a *Aggregator) Register(name string, checker Checker) {
	a.register(name, registration{checker: checker})
}

// RegisterOptional adds a checker whose failure degrades but does not fail
// readiness.
func (a *Aggregator) RegisterOptional(name string, checker Checker) {
	a.register(name, registration{checker: checker, optional: true})
}

func (a *Aggregator) register(name string, r registration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.checks[name]; !exists {
		a.order = append(a.order, name)
	}
	a.checks[name] = r
}

// CheckerNames returns registered names in registration order.
func (a *Aggregator) CheckerNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]string(nil), a.order...)
}

// Check runs a single named health check.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	r, ok := a.checks[name]
	a.mu.RUnlock()
	if !ok {
		return Result{}, ErrCheckerNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()
	return a.run(ctx, r), nil
}

// CheckAll runs every registered check in parallel.
func (a *Aggregator) CheckAll(ctx context.Context) map[string]Result {
	a.mu.RLock()
	checks := make(map[string]registration, len(a.checks))
	for name, r := range a.checks {
		checks[name] = r
	}
	a.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make(map[string]Result, len(checks))
		g       errgroup.Group
	)
	for name, r := range checks {
		g.Go(func() error {
			result := a.run(ctx, r)
			mu.Lock()
			results[name] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// OverallStatus folds results into one status. An unhealthy required check
// makes the whole unhealthy; an unhealthy optional check or any degraded
// check makes it degraded.
func (a *Aggregator) OverallStatus(results map[string]Result) Status {
	a.mu.RLock()
	defer a.mu.RUnlock()

	overall := StatusHealthy
	for name, result := range results {
		status := result.Status
		if status == StatusUnhealthy && a.checks[name].optional {
			status = StatusDegraded
		}
		if status > overall {
			overall = status
		}
	}
	return overall
}

func (a *Aggregator) run(ctx context.Context, r registration) Result {
	start := time.Now()
	resultCh := make(chan Result, 1)

	go func() {
		result := r.checker.Check(ctx)
		if result.Timestamp.IsZero() {
			result.Timestamp = start
		}
		resultCh <- result
	}()

	select {
	case result := <-resultCh:
		result.Duration = time.Since(start)
		return result
	case <-ctx.Done():
		return Result{
			Status:    StatusUnhealthy,
			Message:   "check timed out",
			Error:     ErrCheckTimeout,
			Duration:  time.Since(start),
			Timestamp: start,
		}
	}
}
