package health

import (
	"context"
	"fmt"
)

// KeySet is the view of a JWKS key provider the checker needs.
type KeySet interface {
	KeyCount() int
	Refresh(ctx context.Context) error
}

// JWKSChecker reports whether tokens can be verified. A populated key set is
// healthy without network access; an empty one is refreshed once.
type JWKSChecker struct {
	keys KeySet
}

// NewJWKSChecker creates a checker for keys.
func NewJWKSChecker(keys KeySet) *JWKSChecker {
	return &JWKSChecker{keys: keys}
}

func (c *JWKSChecker) Name() string { return "jwks" }

func (c *JWKSChecker) Check(ctx context.Context) Result {
	if n := c.keys.KeyCount(); n > 0 {
		return Healthy(fmt.Sprintf("%d signing keys cached", n)).
			WithDetails(map[string]any{"key_count": n})
	}
	if err := c.keys.Refresh(ctx); err != nil {
		return Unhealthy("jwks refresh failed", err)
	}
	n := c.keys.KeyCount()
	if n == 0 {
		return Unhealthy("jwks key set empty", ErrNoKeys)
	}
	return Healthy(fmt.Sprintf("%d signing keys fetched", n)).
		WithDetails(map[string]any{"key_count": n})
}
