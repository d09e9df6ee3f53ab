package cache

import "time"

// Policy configures caching behavior.
type Policy struct {
	// DefaultTTL is the TTL to use when none is specified.
	// If zero, caching is disabled.
	DefaultTTL time.Duration

	// MaxTTL caps override TTLs. If zero, no maximum is enforced.
	MaxTTL time.Duration

	// CacheNegative allows caching of false decisions.
	CacheNegative bool
}

// DefaultPolicy returns the policy used for sharing lookups:
// 60s TTL, 5m cap, negative results cached.
func DefaultPolicy() Policy {
	return Policy{
		DefaultTTL:    60 * time.Second,
		MaxTTL:        5 * time.Minute,
		CacheNegative: true,
	}
}

// NoCachePolicy returns a policy that disables caching entirely.
func NoCachePolicy() Policy {
	return Policy{}
}

// WithDefaultTTL returns p with DefaultTTL set to d. A d of zero disables
// caching.
func (p Policy) WithDefaultTTL(d time.Duration) Policy {
	if d < 0 {
		d = 0
	}
	p.DefaultTTL = d
	return p
}

// ShouldCache returns true if caching is enabled by this policy.
func (p Policy) ShouldCache() bool {
	return p.DefaultTTL > 0
}

// EffectiveTTL returns the TTL to use, applying defaults and clamping.
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	ttl := override
	if ttl <= 0 {
		ttl = p.DefaultTTL
	}
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}
	return ttl
}
