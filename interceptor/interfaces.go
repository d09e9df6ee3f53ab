package interceptor

import (
	"context"
	"fmt"

	"github.com/jonwraymond/gatewayauthz/auth"
	"github.com/jonwraymond/gatewayauthz/permission"
	"github.com/jonwraymond/gatewayauthz/policyengine"
)

// TokenVerifier validates an Authorization header value. *auth.Verifier
// implements it.
type TokenVerifier interface {
	Verify(ctx context.Context, authorization string) (*auth.AuthContext, error)
}

// SharingChecker reports whether a resource is shared with a tenant.
// policystore sharing stores implement it.
type SharingChecker interface {
	IsShared(ctx context.Context, resourceID, tenantID string) (bool, error)
}

// TenantChecker reports whether a tenant is active. A missing tenant is
// inactive. policystore tenant stores implement it.
type TenantChecker interface {
	IsTenantActive(ctx context.Context, tenantID string) (bool, error)
}

// activeTenant returns nil when tenants is nil or reports tenantID active.
func activeTenant(ctx context.Context, tenants TenantChecker, tenantID string) error {
	if tenants == nil {
		return nil
	}
	active, err := tenants.IsTenantActive(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("%w: %v", auth.ErrTenantInactive, err)
	}
	if !active {
		return auth.ErrTenantInactive
	}
	return nil
}

// PolicyGate evaluates a permitted call against the policy engine.
// *policyengine.Gate implements it.
type PolicyGate interface {
	Check(ctx context.Context, token string, ac *auth.AuthContext, tool permission.ToolID) (policyengine.Decision, error)
}
