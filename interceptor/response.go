package interceptor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonwraymond/gatewayauthz/auth"
	"github.com/jonwraymond/gatewayauthz/gateway"
	"github.com/jonwraymond/gatewayauthz/observe"
	"github.com/jonwraymond/gatewayauthz/permission"
)

// ResponseConfig configures a ResponseInterceptor.
type ResponseConfig struct {
	// Verifier validates the caller's token. Required.
	Verifier TokenVerifier

	// Permissions is the role permission map. Default: permission.DefaultMap()
	Permissions *permission.Map

	// Tenants, when set, hides every tool from a missing or inactive tenant.
	Tenants TenantChecker

	// Middleware traces, meters and logs each decision. Default: no-op.
	Middleware *observe.Middleware
}

// ResponseInterceptor filters tool listings by the caller's role.
//
// Contract:
// - Concurrency: safe for concurrent use; holds no per-request state.
// - Fail-closed: a caller whose identity cannot be established sees no tools.
type ResponseInterceptor struct {
	config ResponseConfig
}

// NewResponseInterceptor creates a response interceptor.
func NewResponseInterceptor(config ResponseConfig) (*ResponseInterceptor, error) {
	if config.Verifier == nil {
		return nil, errors.New("interceptor: verifier is required")
	}
	if config.Permissions == nil {
		config.Permissions = permission.DefaultMap()
	}
	if config.Middleware == nil {
		config.Middleware = observe.NewMiddleware(nil, nil, nil)
	}
	return &ResponseInterceptor{config: config}, nil
}

// InterceptJSON decodes an interceptor input document and intercepts it. An
// undecodable document yields an empty tool list.
func (ri *ResponseInterceptor) InterceptJSON(ctx context.Context, data []byte) (*gateway.Output, Decision) {
	env, err := gateway.DecodeEnvelope(data)
	if err != nil {
		env = nil
	}
	return ri.Intercept(ctx, env)
}

// Intercept filters one gateway response. Responses without tools pass
// through untouched; tool listings are rebuilt in canonical form.
func (ri *ResponseInterceptor) Intercept(ctx context.Context, env *gateway.Envelope) (*gateway.Output, Decision) {
	var (
		out *gateway.Output
		d   Decision
	)
	meta := observe.InvocationMeta{ID: InvocationID(ctx), Phase: observe.PhaseResponse, Method: gateway.MethodToolsList}
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

func (ri *ResponseInterceptor) evaluate(ctx context.Context, env *gateway.Envelope, m *observe.InvocationMeta) (out *gateway.Output, d Decision, result string, err error) {
	version := gateway.JSONRPCVersion
	var id json.RawMessage
	hideAll := func(kind DenyKind, reason string, cause error) (*gateway.Output, Decision, string, error) {
		return gateway.ToolListResponse(version, id, nil), deny(kind, reason), observe.DecisionDeny, cause
	}
	defer func() {
		if r := recover(); r != nil {
			out, d, result, err = hideAll(KindInternalError, MsgAuthorizationFailed, fmt.Errorf("interceptor: panic: %v", r))
		}
	}()

	if env == nil {
		return hideAll(KindMalformedInput, MsgInvalidJSON, gateway.ErrInvalidEnvelope)
	}
	resp := env.Response()
	body, err := resp.JSONBody()
	if err != nil {
		return gateway.PassResponse(resp), allow(), observe.DecisionPassthrough, nil
	}
	rpc, err := gateway.ParseRPCResponse(body)
	if err != nil {
		return gateway.PassResponse(resp), allow(), observe.DecisionPassthrough, nil
	}
	version, id = rpc.Version(), rpc.RequestID()
	tools, err := rpc.Tools()
	if err != nil {
		return hideAll(KindMalformedInput, MsgInvalidJSON, err)
	}
	if len(tools) == 0 {
		return gateway.PassResponse(resp), allow(), observe.DecisionPassthrough, nil
	}

	header := env.Request().Headers.Authorization()
	if header == "" {
		return hideAll(KindUnauthenticated, MsgAuthorizationRequired, nil)
	}
	ac, err := ri.config.Verifier.Verify(ctx, header)
	if err != nil {
		return hideAll(KindInvalidToken, MsgInvalidToken, err)
	}
	if !ac.Valid() {
		return hideAll(KindInvalidToken, MsgInvalidToken, auth.ErrIncompleteContext)
	}
	m.Tenant, m.Role = ac.TenantID, string(ac.Role)
	if err := activeTenant(ctx, ri.config.Tenants, ac.TenantID); err != nil {
		return hideAll(KindInvalidToken, MsgInvalidToken, err)
	}

	visible := ri.Filter(ac.Role, tools)
	return gateway.ToolListResponse(version, id, visible), allow(), observe.DecisionFiltered, nil
}

// Filter returns the descriptors role may invoke, in their original order.
// Descriptors are kept byte-for-byte, so filtering is idempotent.
func (ri *ResponseInterceptor) Filter(role permission.Role, tools []json.RawMessage) []json.RawMessage {
	visible := make([]json.RawMessage, 0, len(tools))
	for _, t := range tools {
		if ri.config.Permissions.IsAllowed(role, permission.ParseToolID(gateway.ToolName(t))) {
			visible = append(visible, t)
		}
	}
	return visible
}
