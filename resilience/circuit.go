package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means calls flow normally.
	StateClosed State = iota
	// StateOpen means calls are rejected without reaching the dependency.
	StateOpen
	// StateHalfOpen means a limited number of probe calls are allowed.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies the guarded dependency in errors and callbacks.
	Name string

	// MaxFailures is the number of consecutive failures that opens the circuit.
	// Default: 5
	MaxFailures int

	// ResetTimeout is how long the circuit stays open before probing.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// HalfOpenMaxRequests is the number of concurrent probes allowed.
	// Default: 1
	HalfOpenMaxRequests int

	// OnStateChange is called when the circuit state changes.
	// It runs with the breaker's lock held and must not call back into it.
	OnStateChange func(name string, from, to State)

	// IsFailure determines if an error counts as a failure.
	// Default: all non-nil errors.
	IsFailure func(err error) bool

	// Now overrides the clock. Default: time.Now
	Now func() time.Time
}

// CircuitBreaker stops calling a dependency after repeated failures.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu         sync.Mutex
	state      State
	failures   int
	openedAt   time.Time
	probes     int
	rejections int64
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.HalfOpenMaxRequests <= 0 {
		config.HalfOpenMaxRequests = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &CircuitBreaker{config: config, state: StateClosed}
}

// Execute runs op unless the circuit is open.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := op(ctx)
	cb.record(err)
	return err
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stateLocked()
}

// Reset closes the circuit and clears counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transitionLocked(StateClosed)
	cb.failures = 0
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.stateLocked() {
	case StateOpen:
		cb.rejections++
		return cb.openError()
	case StateHalfOpen:
		if cb.probes >= cb.config.HalfOpenMaxRequests {
			cb.rejections++
			return cb.openError()
		}
		cb.probes++
	}
	return nil
}

func (cb *CircuitBreaker) openError() error {
	if cb.config.Name == "" {
		return ErrCircuitOpen
	}
	return fmt.Errorf("%s: %w", cb.config.Name, ErrCircuitOpen)
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	failed := cb.config.IsFailure(err)
	switch cb.state {
	case StateClosed:
		if !failed {
			cb.failures = 0
			return
		}
		cb.failures++
		if cb.failures >= cb.config.MaxFailures {
			cb.openedAt = cb.config.Now()
			cb.transitionLocked(StateOpen)
		}
	case StateHalfOpen:
		cb.probes--
		if failed {
			cb.openedAt = cb.config.Now()
			cb.transitionLocked(StateOpen)
			return
		}
		cb.failures = 0
		cb.transitionLocked(StateClosed)
	}
}

func (cb *CircuitBreaker) stateLocked() State {
	if cb.state == StateOpen && cb.config.Now().Sub(cb.openedAt) >= cb.config.ResetTimeout {
		cb.transitionLocked(StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) transitionLocked(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if to != StateOpen {
		cb.probes = 0
	}
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}

// Metrics returns current circuit breaker statistics.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return CircuitBreakerMetrics{
		State:      cb.stateLocked(),
		Failures:   cb.failures,
		Rejections: cb.rejections,
		OpenedAt:   cb.openedAt,
	}
}

// CircuitBreakerMetrics contains circuit breaker statistics.
type CircuitBreakerMetrics struct {
	State      State
	Failures   int
	Rejections int64
	OpenedAt   time.Time
}
