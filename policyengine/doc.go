// Package policyengine evaluates permitted tool calls against the gateway's
// external Policy Decision Service.
//
// The service answers a PartiallyAuthorizeActions query: given the caller's
// token and a list of actions, it returns which are authorized and, for the
// rest, why not. A Gate applies the configured Mode to the answer:
//
//   - ModeEnforce denies unauthorized actions and failed evaluations.
//   - ModeLogOnly records what would have been denied and allows.
//
// Usage:
//
//	client, err := policyengine.NewClient(policyengine.ClientConfig{
//		Endpoint:  "https://bedrock-agentcore.us-east-1.amazonaws.com",
//		GatewayID: "gw-123",
//		Region:    "us-east-1",
//	})
//	gate := policyengine.NewGate(client, policyengine.ModeEnforce, logger)
//	decision, err := gate.Check(ctx, token, authCtx, tool)
package policyengine
