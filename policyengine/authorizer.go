package policyengine

import "context"

// ActionTypeCustom is the action type of gateway tool invocations.
const ActionTypeCustom = "CUSTOM"

// Action is one action to authorize. ID is the prefixed tool name.
type Action struct {
	ID          string `json:"actionId"`
	Description string `json:"actionDescription,omitempty"`
	Type        string `json:"actionType"`
}

// ActionDecision is the service's answer for one action.
type ActionDecision struct {
	ID     string `json:"actionId"`
	Reason string `json:"reason,omitempty"`
}

// Result partitions the requested actions.
type Result struct {
	Authorized   []ActionDecision `json:"authorizedActions"`
	Unauthorized []ActionDecision `json:"unauthorizedActions"`
}

// IsAuthorized reports whether id appears among the authorized actions.
// An action absent from both lists is not authorized.
func (r Result) IsAuthorized(id string) bool {
	for _, a := range r.Authorized {
		if a.ID == id {
			return true
		}
	}
	return false
}

// Reason returns the denial reason recorded for id, if any.
func (r Result) Reason(id string) string {
	for _, a := range r.Unauthorized {
		if a.ID == id {
			return a.Reason
		}
	}
	return ""
}

// Authorizer evaluates actions for the principal identified by token.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: transport and service failures wrap ErrUnavailable.
// - An unauthorized action is a Result entry, not an error.
type Authorizer interface {
	AuthorizeActions(ctx context.Context, token string, actions []Action) (Result, error)
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, token string, actions []Action) (Result, error)

func (f AuthorizerFunc) AuthorizeActions(ctx context.Context, token string, actions []Action) (Result, error) {
	return f(ctx, token, actions)
}
