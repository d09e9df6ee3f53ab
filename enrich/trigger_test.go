package enrich

import (
	"context"
	"encoding/json"
	"testing"
)

const v2Event = `{
	"version": "2",
	"triggerSource": "TokenGeneration_Authentication",
	"region": "us-east-1",
	"userPoolId": "us-east-1_pool",
	"userName": "alice",
	"request": {
		"userAttributes": {"sub": "s-1", "email": "alice@example.com", "custom:tenant_id": "tenant-a"},
		"clientMetadata": {"agent_id": "agent-1"},
		"scopes": ["openid"]
	},
	"response": {
		"claimsAndScopeOverrideDetails": {
			"accessTokenGeneration": {"claimsToAddOrOverride": {"keep": "me"}, "scopesToAdd": ["x"]}
		}
	}
}`

func TestHandleTrigger(t *testing.T) {
	var event TriggerEvent
	if err := json.Unmarshal([]byte(v2Event), &event); err != nil {
		t.Fatal(err)
	}
	e := NewEnricher(seededStore(t, record("alice@example.com", "agent-1", "agent-2")))
	out := e.HandleTrigger(context.Background(), event)

	details := out.Response.ClaimsAndScopeOverrideDetails
	if details == nil || details.IDTokenGeneration == nil || details.AccessTokenGeneration == nil {
		t.Fatalf("override details = %+v", details)
	}
	for name, gen := range map[string]*TokenGeneration{
		"id":     details.IDTokenGeneration,
		"access": details.AccessTokenGeneration,
	} {
		claims := gen.ClaimsToAddOrOverride
		if claims[ClaimRole] != "user" || claims[ClaimTenantID] != "tenant-a" || claims[ClaimAgentID] != "agent-1" {
			t.Errorf("%s claims = %v", name, claims)
		}
	}
	if details.AccessTokenGeneration.ClaimsToAddOrOverride["keep"] != "me" {
		t.Error("existing access token override was dropped")
	}
	if len(details.AccessTokenGeneration.ScopesToAdd) != 1 {
		t.Error("existing scopes were dropped")
	}
	if out.UserName != "alice" || out.Request.UserAttributes["sub"] != "s-1" {
		t.Error("event fields were not preserved")
	}

	data, err := json.Marshal(out)
	if err != nil {
		t.Fatal(err)
	}
	var wire map[string]any
	_ = json.Unmarshal(data, &wire)
	resp := wire["response"].(map[string]any)["claimsAndScopeOverrideDetails"].(map[string]any)
	id := resp["idTokenGeneration"].(map[string]any)["claimsToAddOrOverride"].(map[string]any)
	if id["groups"] != `["engineering"]` {
		t.Errorf("groups on the wire = %v, want JSON string", id["groups"])
	}
}

func TestHandleTrigger_UnknownUser(t *testing.T) {
	event := TriggerEvent{
		Version: "2",
		Request: TriggerRequest{UserAttributes: map[string]string{"email": "nobody@example.com"}},
	}
	out := NewEnricher(seededStore(t)).HandleTrigger(context.Background(), event)
	claims := out.Response.ClaimsAndScopeOverrideDetails.IDTokenGeneration.ClaimsToAddOrOverride
	if claims[ClaimRole] != "guest" || claims[ClaimAllowedTools] != "[]" {
		t.Errorf("claims = %v", claims)
	}
	if _, ok := claims[ClaimAgentID]; ok {
		t.Error("guest must not receive agent_id")
	}
}
