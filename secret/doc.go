// Package secret resolves secret references in configuration values.
//
// A value is first expanded against the environment (see ExpandEnvStrict),
// then any reference with the "secretref:" prefix is replaced by the value
// of the named provider:
//
//	secretref:env:POLICY_ENGINE_TOKEN
//	secretref:awssm:prod/gatewayauthz#redis_password
//
// References may also appear inline, as in "Bearer secretref:env:TOKEN".
package secret
