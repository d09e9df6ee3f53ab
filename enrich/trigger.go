package enrich

import (
	"context"
	"encoding/json"
)

// TriggerEvent is the Cognito Pre Token Generation V2 event.
type TriggerEvent struct {
	Version       string          `json:"version"`
	TriggerSource string          `json:"triggerSource"`
	Region        string          `json:"region,omitempty"`
	UserPoolID    string          `json:"userPoolId"`
	UserName      string          `json:"userName"`
	CallerContext json.RawMessage `json:"callerContext,omitempty"`
	Request       TriggerRequest  `json:"request"`
	Response      TriggerResponse `json:"response"`
}

// TriggerRequest carries the subject's attributes and client metadata.
type TriggerRequest struct {
	UserAttributes     map[string]string `json:"userAttributes"`
	ClientMetadata     map[string]string `json:"clientMetadata,omitempty"`
	GroupConfiguration json.RawMessage   `json:"groupConfiguration,omitempty"`
	Scopes             []string          `json:"scopes,omitempty"`
}

// TriggerResponse is filled in by the handler.
type TriggerResponse struct {
	ClaimsAndScopeOverrideDetails *OverrideDetails `json:"claimsAndScopeOverrideDetails,omitempty"`
}

// OverrideDetails holds per-token claim overrides.
type OverrideDetails struct {
	IDTokenGeneration     *TokenGeneration `json:"idTokenGeneration,omitempty"`
	AccessTokenGeneration *TokenGeneration `json:"accessTokenGeneration,omitempty"`
	GroupOverrideDetails  json.RawMessage  `json:"groupOverrideDetails,omitempty"`
}

// TokenGeneration is the override set for one token type.
type TokenGeneration struct {
	ClaimsToAddOrOverride map[string]any `json:"claimsToAddOrOverride,omitempty"`
	ClaimsToSuppress      []string       `json:"claimsToSuppress,omitempty"`
	ScopesToAdd           []string       `json:"scopesToAdd,omitempty"`
	ScopesToSuppress      []string       `json:"scopesToSuppress,omitempty"`
}

// HandleTrigger enriches a Pre Token Generation event. The claims are merged
// into both the ID and access token overrides; existing overrides for other
// claims are kept.
func (e *Enricher) HandleTrigger(ctx context.Context, event TriggerEvent) TriggerEvent {
	claims := e.Enrich(ctx, event.Request.UserAttributes, event.Request.ClientMetadata)

	details := event.Response.ClaimsAndScopeOverrideDetails
	if details == nil {
		details = &OverrideDetails{}
	}
	details.IDTokenGeneration = mergeClaims(details.IDTokenGeneration, claims)
	details.AccessTokenGeneration = mergeClaims(details.AccessTokenGeneration, claims)
	event.Response.ClaimsAndScopeOverrideDetails = details
	return event
}

func mergeClaims(gen *TokenGeneration, claims Claims) *TokenGeneration {
	if gen == nil {
		gen = &TokenGeneration{}
	}
	if gen.ClaimsToAddOrOverride == nil {
		gen.ClaimsToAddOrOverride = make(map[string]any, len(claims))
	}
	for k, v := range claims {
		gen.ClaimsToAddOrOverride[k] = v
	}
	return gen
}
