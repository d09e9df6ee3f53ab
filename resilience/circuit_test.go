package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var errDependency = errors.New("dependency down")

func fail(context.Context) error    { return errDependency }
func succeed(context.Context) error { return nil }

func TestNewCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})
	if cb.State() != StateClosed {
		t.Errorf("Initial state = %v, want closed", cb.State())
	}
	if cb.config.MaxFailures != 5 || cb.config.ResetTimeout != 30*time.Second || cb.config.HalfOpenMaxRequests != 1 {
		t.Errorf("defaults = %+v", cb.config)
	}
}

func TestCircuitBreaker_Lifecycle(t *testing.T) {
	clock := &stepClock{now: time.Unix(0, 0)}
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "policyengine",
		MaxFailures:  3,
		ResetTimeout: 10 * time.Second,
		Now:          clock.Now,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		},
	})
	ctx := context.Background()

	for i := range 3 {
		if err := cb.Execute(ctx, fail); err != errDependency {
			t.Fatalf("failure %d: error = %v", i, err)
		}
	}
	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Fatalf("open circuit: error = %v, called = %v", err, called)
	}

	clock.Advance(10 * time.Second)
	if cb.State() != StateHalfOpen {
		t.Fatalf("state = %v, want half-open", cb.State())
	}
	if err := cb.Execute(ctx, succeed); err != nil {
		t.Fatalf("probe error = %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("state = %v, want closed", cb.State())
	}

	want := []string{
		"policyengine:closed->open",
		"policyengine:open->half-open",
		"policyengine:half-open->closed",
	}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition[%d] = %q, want %q", i, transitions[i], want[i])
		}
	}
	if m := cb.Metrics(); m.Rejections != 1 {
		t.Errorf("Rejections = %d, want 1", m.Rejections)
	}
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	clock := &stepClock{now: time.Unix(0, 0)}
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Second, Now: clock.Now})
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	clock.Advance(time.Second)
	_ = cb.Execute(ctx, fail)

	if cb.State() != StateOpen {
		t.Errorf("state = %v, want open after failed probe", cb.State())
	}
}

func TestCircuitBreaker_SuccessResetsCount(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 2})
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, succeed)
	_ = cb.Execute(ctx, fail)
	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_IsFailure(t *testing.T) {
	notFound := errors.New("not found")
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures: 1,
		IsFailure:   func(err error) bool { return err != nil && !errors.Is(err, notFound) },
	})
	_ = cb.Execute(context.Background(), func(context.Context) error { return notFound })
	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed for ignored error", cb.State())
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1})
	_ = cb.Execute(context.Background(), fail)
	cb.Reset()
	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed after Reset", cb.State())
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{StateClosed: "closed", StateOpen: "open", StateHalfOpen: "half-open", State(9): "unknown"}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("State(%d).String() = %q, want %q", s, s.String(), want)
		}
	}
}
