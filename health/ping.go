package health

import (
	"context"
	"fmt"
	"time"
)

// Pinger is a dependency that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingOption configures a PingChecker.
type PingOption func(*PingChecker)

// WithSlowThreshold marks the dependency degraded when a ping takes longer
// than d.
func WithSlowThreshold(d time.Duration) PingOption {
	return func(c *PingChecker) { c.slow = d }
}

// PingChecker checks a dependency with a single Ping.
type PingChecker struct {
	name   string
	target Pinger
	slow   time.Duration
}

// NewPingChecker creates a checker that pings target.
func NewPingChecker(name string, target Pinger, opts ...PingOption) *PingChecker {
	c := &PingChecker{name: name, target: target}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) Result {
	start := time.Now()
	if err := c.target.Ping(ctx); err != nil {
		return Unhealthy(c.name+" unreachable", err)
	}
	elapsed := time.Since(start)
	if c.slow > 0 && elapsed > c.slow {
		return Degraded(fmt.Sprintf("%s slow: %s", c.name, elapsed.Round(time.Millisecond)))
	}
	return Healthy(c.name + " reachable")
}
