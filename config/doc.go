// Package config loads the gatewayauthz service configuration.
//
// A configuration comes from a YAML file (Load) or from the process
// environment (FromEnv). Both start from Default, so omitted settings keep
// their defaults. String settings may hold secret references of the form
// secretref:<provider>:<ref>, resolved through the secret package before
// validation.
//
// Example file:
//
//	server:
//	  addr: ":8080"
//	  invocation_timeout: 5s
//	auth:
//	  jwks_url: https://cognito-idp.us-east-1.amazonaws.com/us-east-1_abc/.well-known/jwks.json
//	  client_id: ${CLIENT_ID}
//	policy_store:
//	  table: AuthPolicyTable
//	policy_engine:
//	  enabled: true
//	  mode: ENFORCE
//	  gateway_id: gw-123
package config
