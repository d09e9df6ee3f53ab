package auth

import (
	"time"

	"github.com/jonwraymond/gatewayauthz/permission"
)

// AuthContext is the identity extracted from a verified token.
type AuthContext struct {
	// TenantID is the caller's tenant (tenant_id claim).
	TenantID string

	// UserID is the token subject (sub claim).
	UserID string

	// Role is the caller's role; permission.DefaultRole when the claim is absent.
	Role permission.Role

	// AgentID is the agent bound to the token, if any.
	AgentID string

	// Groups are the caller's groups, if any.
	Groups []string

	// Email is the email claim, if present.
	Email string

	// Claims contains a copy of every verified claim.
	Claims map[string]any

	ExpiresAt time.Time
	IssuedAt  time.Time
}

// Valid reports whether the context carries both a tenant and a role.
// A context failing Valid is never authorized.
func (a *AuthContext) Valid() bool {
	return a != nil && a.TenantID != "" && a.Role != ""
}

// IsExpired reports whether the token had expired at now.
func (a *AuthContext) IsExpired(now time.Time) bool {
	if a.ExpiresAt.IsZero() {
		return false
	}
	return now.After(a.ExpiresAt)
}

// Claim returns a claim as a string, or "" when absent or not a string.
func (a *AuthContext) Claim(name string) string {
	if a == nil {
		return ""
	}
	s, _ := a.Claims[name].(string)
	return s
}
