package policyengine

import (
	"context"

	"github.com/jonwraymond/gatewayauthz/auth"
	"github.com/jonwraymond/gatewayauthz/observe"
	"github.com/jonwraymond/gatewayauthz/permission"
)

// Decision is a Gate's verdict on one tool call.
type Decision struct {
	// Allowed is the effective verdict after applying the mode.
	Allowed bool

	// Authorized is the service's own answer; false also when the
	// evaluation failed.
	Authorized bool

	// Reason explains a denial or would-be denial.
	Reason string

	Mode Mode
}

const (
	reasonNotAuthorized    = "not authorized by policy"
	reasonEvaluationFailed = "policy evaluation failed"
)

// Gate applies a Mode to an Authorizer's answers.
type Gate struct {
	authz  Authorizer
	mode   Mode
	logger observe.Logger
}

// NewGate creates a gate. An empty mode is ModeLogOnly and an unrecognized
// one is ModeEnforce. A nil logger discards.
func NewGate(authz Authorizer, mode Mode, logger observe.Logger) *Gate {
	if logger == nil {
		logger = observe.NopLogger()
	}
	parsed, err := ParseMode(string(mode))
	if err != nil {
		parsed = ModeEnforce
	}
	return &Gate{authz: authz, mode: parsed, logger: logger}
}

// Mode returns the gate's mode.
func (g *Gate) Mode() Mode { return g.mode }

// Check evaluates a call of tool by the caller holding token. In ModeEnforce
// a failed evaluation returns a deny decision together with the error; in
// ModeLogOnly the failure is logged and the call allowed.
func (g *Gate) Check(ctx context.Context, token string, ac *auth.AuthContext, tool permission.ToolID) (Decision, error) {
	action := Action{
		ID:          tool.String(),
		Description: "invoke " + tool.Name,
		Type:        ActionTypeCustom,
	}
	fields := []observe.Field{
		observe.F("mode", string(g.mode)),
		observe.F("action", action.ID),
	}
	if ac != nil {
		fields = append(fields, observe.F("tenant", ac.TenantID), observe.F("role", string(ac.Role)))
	}

	res, err := g.authz.AuthorizeActions(ctx, token, []Action{action})
	if err != nil {
		d := Decision{Mode: g.mode, Reason: reasonEvaluationFailed}
		if g.mode == ModeEnforce {
			return d, err
		}
		g.logger.Warn(ctx, "policy evaluation failed, allowing", append(fields, observe.F("error", err))...)
		d.Allowed = true
		return d, nil
	}

	if res.IsAuthorized(action.ID) {
		return Decision{Allowed: true, Authorized: true, Mode: g.mode}, nil
	}

	reason := res.Reason(action.ID)
	if reason == "" {
		reason = reasonNotAuthorized
	}
	d := Decision{Mode: g.mode, Reason: reason}
	if g.mode == ModeEnforce {
		return d, nil
	}
	g.logger.Info(ctx, "policy would deny", append(fields, observe.F("reason", reason))...)
	d.Allowed = true
	return d, nil
}
