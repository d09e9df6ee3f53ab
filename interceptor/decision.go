package interceptor

import (
	"context"

	"github.com/jonwraymond/gatewayauthz/observe"
)

// DenyKind classifies a deny.
type DenyKind string

const (
	KindNone                    DenyKind = ""
	KindMalformedInput          DenyKind = "malformed_input"
	KindUnauthenticated         DenyKind = "unauthenticated"
	KindInvalidToken            DenyKind = "invalid_token"
	KindTenantBoundaryViolation DenyKind = "tenant_boundary_violation"
	KindRoleNotPermitted        DenyKind = "role_not_permitted"
	KindResourceNotShared       DenyKind = "resource_not_shared"
	KindPolicyDenied            DenyKind = "policy_denied"
	KindInternalError           DenyKind = "internal_error"
)

// Caller-facing messages.
const (
	MsgAuthorizationRequired = "Authorization required"
	MsgInvalidToken          = "Invalid authorization token"
	MsgInvalidJSON           = "Invalid JSON in request body"
	MsgAuthorizationFailed   = "Authorization failed"

	msgTenantMismatch  = "Access denied: cross-tenant access not allowed (user tenant: '%s', requested namespace: '%s')"
	msgRoleNotAllowed  = "Access denied: tool '%s' is not allowed for role '%s'"
	msgNotShared       = "Access denied: resource '%s' is not shared with tenant '%s'"
	msgPolicyForbidden = "Access denied: tool '%s' is not permitted by policy"
)

// Decision is the verdict of one interception. It is logged and metered,
// never persisted.
type Decision struct {
	Allowed bool
	Reason  string
	Kind    DenyKind
}

func allow() Decision { return Decision{Allowed: true} }

func deny(kind DenyKind, reason string) Decision {
	return Decision{Reason: reason, Kind: kind}
}

// outcome maps a decision onto the observe vocabulary.
func outcome(d Decision, result string) observe.Outcome {
	if !d.Allowed {
		return observe.Outcome{Decision: observe.DecisionDeny, Kind: string(d.Kind)}
	}
	return observe.Outcome{Decision: result}
}

type invocationKey struct{}

// WithInvocationID attaches the invocation id used in logs and spans.
func WithInvocationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, invocationKey{}, id)
}

// InvocationID returns the id attached by WithInvocationID.
func InvocationID(ctx context.Context) string {
	id, _ := ctx.Value(invocationKey{}).(string)
	return id
}
