package health

import (
	"context"
	"time"
)

// Status orders check outcomes from best to worst, so the aggregate of a set
// of results is their maximum.
type Status int

const (
	// StatusHealthy means the dependency answers within its budget.
	StatusHealthy Status = iota
	// StatusDegraded means decisions can still be made, possibly slower or
	// without an optional dependency.
	StatusDegraded
	// StatusUnhealthy means the interceptors would fail closed.
	StatusUnhealthy
)

var statusNames = [...]string{
	StatusHealthy:   "healthy",
	StatusDegraded:  "degraded",
	StatusUnhealthy: "unhealthy",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// Result is the outcome of one dependency check. Duration and Timestamp are
// filled by the Aggregator when the checker leaves them zero.
type Result struct {
	Status    Status
	Message   string
	Details   map[string]any
	Duration  time.Duration
	Timestamp time.Time
	Error     error
}

func result(s Status, msg string, err error) Result {
	return Result{Status: s, Message: msg, Error: err, Timestamp: time.Now()}
}

// Healthy reports a working dependency.
func Healthy(message string) Result { return result(StatusHealthy, message, nil) }

// Degraded reports a dependency that works with reduced quality.
func Degraded(message string) Result { return result(StatusDegraded, message, nil) }

// Unhealthy reports an unusable dependency and the error that showed it.
func Unhealthy(message string, err error) Result { return result(StatusUnhealthy, message, err) }

// WithDetails returns r carrying details, which are rendered by the detailed
// health handler.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// Checker probes one dependency of the authorization pipeline (the JWKS
// endpoint, the policy store, the sharing cache).
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// CheckerFunc is a Checker backed by a closure.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

// NewCheckerFunc names fn as a Checker.
func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

// Name implements Checker.
func (f *CheckerFunc) Name() string { return f.name }

// Check implements Checker.
func (f *CheckerFunc) Check(ctx context.Context) Result { return f.fn(ctx) }
