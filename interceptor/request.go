package interceptor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/jonwraymond/gatewayauthz/auth"
	"github.com/jonwraymond/gatewayauthz/gateway"
	"github.com/jonwraymond/gatewayauthz/observe"
	"github.com/jonwraymond/gatewayauthz/permission"
)

// Defaults for RequestConfig.
const (
	DefaultSystemTool        = "x_amz_bedrock_agentcore_search"
	DefaultNamespaceArgument = "namespace"
	DefaultResourceArgument  = "resource_id"
)

// RequestConfig configures a RequestInterceptor.
type RequestConfig struct {
	// Verifier validates the caller's token. Required.
	Verifier TokenVerifier

	// Permissions is the role permission map. Default: permission.DefaultMap()
	Permissions *permission.Map

	// Tenants, when set, rejects tokens whose tenant is missing or inactive.
	Tenants TenantChecker

	// SystemTools bypass tenant and role checks once the caller is
	// authenticated. Default: [DefaultSystemTool]
	SystemTools []string

	// NamespaceArgument names the tenant-scoped call argument.
	// Default: DefaultNamespaceArgument
	NamespaceArgument string

	// Sharing, when set, requires resources named by ResourceArgument to be
	// shared with the caller's tenant.
	Sharing SharingChecker

	// ResourceArgument names the call argument holding a resource id.
	// Default: DefaultResourceArgument
	ResourceArgument string

	// Policy, when set, evaluates calls that passed every local check.
	Policy PolicyGate

	// Middleware traces, meters and logs each decision. Default: no-op.
	Middleware *observe.Middleware
}

// RequestInterceptor gates tool invocations.
//
// Contract:
// - Concurrency: safe for concurrent use; holds no per-request state.
// - Fail-closed: every error and panic yields a deny.
type RequestInterceptor struct {
	config RequestConfig
}

// NewRequestInterceptor creates a request interceptor.
func NewRequestInterceptor(config RequestConfig) (*RequestInterceptor, error) {
	if config.Verifier == nil {
		return nil, errors.New("interceptor: verifier is required")
	}
	if config.Permissions == nil {
		config.Permissions = permission.DefaultMap()
	}
	if config.SystemTools == nil {
		config.SystemTools = []string{DefaultSystemTool}
	}
	if config.NamespaceArgument == "" {
		config.NamespaceArgument = DefaultNamespaceArgument
	}
	if config.ResourceArgument == "" {
		config.ResourceArgument = DefaultResourceArgument
	}
	if config.Middleware == nil {
		config.Middleware = observe.NewMiddleware(nil, nil, nil)
	}
	return &RequestInterceptor{config: config}, nil
}

// InterceptJSON decodes an interceptor input document and intercepts it. An
// undecodable document is denied as malformed.
func (ri *RequestInterceptor) InterceptJSON(ctx context.Context, data []byte) (*gateway.Output, Decision) {
	env, err := gateway.DecodeEnvelope(data)
	if err != nil {
		env = nil
	}
	return ri.Intercept(ctx, env)
}

// Intercept decides one gateway request. The output either forwards the
// original request or short-circuits it with a deny result.
func (ri *RequestInterceptor) Intercept(ctx context.Context, env *gateway.Envelope) (*gateway.Output, Decision) {
	var (
		out *gateway.Output
		d   Decision
	)
	meta := observe.InvocationMeta{ID: InvocationID(ctx), Phase: observe.PhaseRequest}
	_, _ = ri.config.Middleware.Run(ctx, meta, func(ctx context.Context, m *observe.InvocationMeta) (observe.Outcome, error) {
		var (
			result string
			err    error
		)
		out, d, result, err = ri.evaluate(ctx, env, m)
		return outcome(d, result), err
	})
	return out, d
}

// evaluate runs the decision steps in order; the first that decides wins.
func (ri *RequestInterceptor) evaluate(ctx context.Context, env *gateway.Envelope, m *observe.InvocationMeta) (out *gateway.Output, d Decision, result string, err error) {
	var id json.RawMessage
	denyWith := func(kind DenyKind, reason string, cause error) (*gateway.Output, Decision, string, error) {
		return gateway.DenyRequest(id, reason), deny(kind, reason), observe.DecisionDeny, cause
	}
	defer func() {
		if r := recover(); r != nil {
			out, d, result, err = denyWith(KindInternalError, MsgAuthorizationFailed, fmt.Errorf("interceptor: panic: %v", r))
		}
	}()

	if env == nil {
		return denyWith(KindMalformedInput, MsgInvalidJSON, gateway.ErrInvalidEnvelope)
	}
	req := env.Request()
	body, err := req.JSONBody()
	if err != nil {
		return denyWith(KindMalformedInput, MsgInvalidJSON, err)
	}
	rpc, err := gateway.ParseRPCRequest(body)
	if err != nil {
		return denyWith(KindMalformedInput, MsgInvalidJSON, err)
	}
	id = rpc.RequestID()
	m.Method = rpc.Method

	if gateway.IsLifecycle(rpc.Method) {
		return gateway.PassRequest(req, body), allow(), observe.DecisionPassthrough, nil
	}

	header := req.Headers.Authorization()
	if header == "" {
		return denyWith(KindUnauthenticated, MsgAuthorizationRequired, nil)
	}
	ac, err := ri.config.Verifier.Verify(ctx, header)
	if err != nil {
		return denyWith(KindInvalidToken, MsgInvalidToken, err)
	}
	if !ac.Valid() {
		return denyWith(KindInvalidToken, MsgInvalidToken, auth.ErrIncompleteContext)
	}
	m.Tenant, m.Role = ac.TenantID, string(ac.Role)
	if err := activeTenant(ctx, ri.config.Tenants, ac.TenantID); err != nil {
		return denyWith(KindInvalidToken, MsgInvalidToken, err)
	}
	ctx = auth.WithAuthContext(ctx, ac)

	if rpc.Method != gateway.MethodToolsCall {
		return gateway.PassRequest(req, body), allow(), observe.DecisionAllow, nil
	}

	params, err := rpc.CallParams()
	if err != nil {
		return denyWith(KindMalformedInput, MsgAuthorizationFailed, err)
	}
	tool := permission.ParseToolID(params.Name)
	m.Tool, m.Target = tool.Name, tool.Target

	if slices.Contains(ri.config.SystemTools, tool.Name) {
		return gateway.PassRequest(req, body), allow(), observe.DecisionPassthrough, nil
	}

	if ns, present, ok := argument(params, ri.config.NamespaceArgument); !ok || (present && ns != ac.TenantID) {
		return denyWith(KindTenantBoundaryViolation, fmt.Sprintf(msgTenantMismatch, ac.TenantID, ns), nil)
	}

	if !ri.config.Permissions.IsAllowed(ac.Role, tool) {
		return denyWith(KindRoleNotPermitted, fmt.Sprintf(msgRoleNotAllowed, tool.Name, ac.Role), nil)
	}

	if ri.config.Sharing != nil {
		resource, present, ok := argument(params, ri.config.ResourceArgument)
		if !ok {
			return denyWith(KindResourceNotShared, fmt.Sprintf(msgNotShared, resource, ac.TenantID), nil)
		}
		if present {
			shared, err := ri.config.Sharing.IsShared(ctx, resource, ac.TenantID)
			if err != nil {
				return denyWith(KindInternalError, MsgAuthorizationFailed, err)
			}
			if !shared {
				return denyWith(KindResourceNotShared, fmt.Sprintf(msgNotShared, resource, ac.TenantID), nil)
			}
		}
	}

	if ri.config.Policy != nil {
		token, err := auth.BearerToken(header)
		if err != nil {
			return denyWith(KindInternalError, MsgAuthorizationFailed, err)
		}
		pd, err := ri.config.Policy.Check(ctx, token, ac, tool)
		if !pd.Allowed {
			if err != nil {
				return denyWith(KindInternalError, MsgAuthorizationFailed, err)
			}
			return denyWith(KindPolicyDenied, fmt.Sprintf(msgPolicyForbidden, tool.Name), errors.New(pd.Reason))
		}
	}

	return gateway.PassRequest(req, body), allow(), observe.DecisionAllow, nil
}

// argument returns a call argument. present is false for an absent, null or
// empty value. ok is false for a non-string value, whose JSON text is
// returned for the deny message.
func argument(params gateway.CallParams, name string) (value string, present, ok bool) {
	value, present, ok = params.StringArgument(name)
	if !ok {
		return string(bytes.TrimSpace(params.Arguments[name])), true, false
	}
	return value, present && value != "", true
}
