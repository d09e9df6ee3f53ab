package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Environment variables read by FromEnv.
const (
	EnvListenAddr        = "LISTEN_ADDR"
	EnvInvocationTimeout = "INVOCATION_TIMEOUT"
	EnvJWKSURL           = "JWKS_URL"
	EnvClientID          = "CLIENT_ID"
	EnvIssuer            = "TOKEN_ISSUER"
	EnvTokenUse          = "TOKEN_USE"
	EnvPermissionsFile   = "PERMISSIONS_FILE"
	EnvAuthPolicyTable   = "AUTH_POLICY_TABLE"
	EnvSharingTable      = "SHARING_TABLE"
	EnvSharingCacheTTL   = "SHARING_CACHE_TTL"
	EnvTenantTable       = "TENANT_TABLE"
	EnvRedisURL          = "REDIS_URL"
	EnvGatewayID         = "GATEWAY_ID"
	EnvPolicyEngineMode  = "POLICY_ENGINE_MODE"
	EnvPolicyEngineURL   = "POLICY_ENGINE_ENDPOINT"
	EnvAWSRegion         = "AWS_REGION"
	EnvAWSDefaultRegion  = "AWS_DEFAULT_REGION"
	EnvDynamoDBEndpoint  = "DYNAMODB_ENDPOINT"
	EnvLogLevel          = "LOG_LEVEL"
)

// FromEnv builds a configuration from Default and the process environment.
//
// Setting SHARING_TABLE enables the DynamoDB sharing store, TENANT_TABLE the
// tenant status check, and GATEWAY_ID the policy engine. REDIS_URL moves the
// sharing cache to Redis.
func FromEnv(ctx context.Context, opts ...Option) (*Config, error) {
	l := newLoader(opts)
	cfg := Default()
	if err := ApplyEnv(&cfg, l.lookup); err != nil {
		return nil, err
	}
	return l.finish(ctx, &cfg)
}

// ApplyEnv overlays environment settings onto cfg.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(name)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	setString := func(name string, dst *string) {
		if v, ok := get(name); ok {
			*dst = v
		}
	}
	setDuration := func(name string, dst *time.Duration) error {
		v, ok := get(name)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			if secs, serr := strconv.Atoi(v); serr == nil {
				d, err = time.Duration(secs)*time.Second, nil
			}
		}
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, name, err)
		}
		*dst = d
		return nil
	}

	setString(EnvListenAddr, &cfg.Server.Addr)
	if err := setDuration(EnvInvocationTimeout, &cfg.Server.InvocationTimeout); err != nil {
		return err
	}

	setString(EnvJWKSURL, &cfg.Auth.JWKSURL)
	setString(EnvClientID, &cfg.Auth.ClientID)
	setString(EnvIssuer, &cfg.Auth.Issuer)
	if v, ok := get(EnvTokenUse); ok {
		cfg.Auth.TokenUse = strings.ToLower(v)
	}
	setString(EnvPermissionsFile, &cfg.Permissions.File)

	setString(EnvAuthPolicyTable, &cfg.PolicyStore.Table)

	if v, ok := get(EnvSharingTable); ok {
		cfg.Sharing.Backend = BackendDynamoDB
		cfg.Sharing.Table = v
	}
	if err := setDuration(EnvSharingCacheTTL, &cfg.Sharing.CacheTTL); err != nil {
		return err
	}
	if v, ok := get(EnvTenantTable); ok {
		cfg.Tenants.Backend = BackendDynamoDB
		cfg.Tenants.Table = v
	}
	if v, ok := get(EnvRedisURL); ok {
		cfg.Sharing.Cache = CacheRedis
		cfg.Sharing.RedisURL = v
	}

	if v, ok := get(EnvGatewayID); ok {
		cfg.PolicyEngine.Enabled = true
		cfg.PolicyEngine.GatewayID = v
	}
	setString(EnvPolicyEngineMode, &cfg.PolicyEngine.Mode)
	setString(EnvPolicyEngineURL, &cfg.PolicyEngine.Endpoint)

	setString(EnvAWSDefaultRegion, &cfg.AWS.Region)
	setString(EnvAWSRegion, &cfg.AWS.Region)
	setString(EnvDynamoDBEndpoint, &cfg.AWS.Endpoint)

	if v, ok := get(EnvLogLevel); ok {
		cfg.Observe.Logging.Level = strings.ToLower(v)
	}
	return nil
}
