package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonwraymond/gatewayauthz/interceptor"
	"github.com/jonwraymond/gatewayauthz/observe"
	"github.com/jonwraymond/gatewayauthz/policyengine"
	"github.com/jonwraymond/gatewayauthz/policystore"
)

// ErrInvalid indicates a configuration that failed validation.
var ErrInvalid = errors.New("config: invalid")

// Backends for the policy, sharing and tenant stores.
const (
	BackendDynamoDB = "dynamodb"
	BackendMemory   = "memory"
	BackendNone     = "none"
)

// Sharing cache kinds.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config is the complete service configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Auth         AuthConfig         `yaml:"auth"`
	Permissions  PermissionsConfig  `yaml:"permissions"`
	Interceptor  InterceptorConfig  `yaml:"interceptor"`
	PolicyStore  PolicyStoreConfig  `yaml:"policy_store"`
	Sharing      SharingConfig      `yaml:"sharing"`
	Tenants      TenantsConfig      `yaml:"tenants"`
	PolicyEngine PolicyEngineConfig `yaml:"policy_engine"`
	AWS          AWSConfig          `yaml:"aws"`
	Secrets      SecretsConfig      `yaml:"secrets"`
	Observe      observe.Config     `yaml:"observe"`
}

type ServerConfig struct {
	Addr              string        `yaml:"addr" validate:"required"`
	ReadTimeout       time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout      time.Duration `yaml:"write_timeout" validate:"gte=0"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
	InvocationTimeout time.Duration `yaml:"invocation_timeout" validate:"gt=0"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes" validate:"gt=0"`
}

type AuthConfig struct {
	JWKSURL      string        `yaml:"jwks_url" validate:"required,url"`
	JWKSCacheTTL time.Duration `yaml:"jwks_cache_ttl" validate:"gte=0"`
	ClientID     string        `yaml:"client_id" validate:"required"`
	Issuer       string        `yaml:"issuer" validate:"omitempty,url"`
	TokenUse     string        `yaml:"token_use" validate:"oneof=id access"`
	Algorithms   []string      `yaml:"algorithms" validate:"min=1,dive,required,ne=none"`
	TenantClaim  string        `yaml:"tenant_claim"`
	RoleClaim    string        `yaml:"role_claim"`
	Leeway       time.Duration `yaml:"leeway" validate:"gte=0"`
}

// PermissionsConfig selects the role permission map. An empty File uses the
// built-in map.
type PermissionsConfig struct {
	File string `yaml:"file"`
}

type InterceptorConfig struct {
	SystemTools       []string `yaml:"system_tools" validate:"dive,required"`
	NamespaceArgument string   `yaml:"namespace_argument" validate:"required"`
	ResourceArgument  string   `yaml:"resource_argument" validate:"required"`
}

type PolicyStoreConfig struct {
	Backend        string        `yaml:"backend" validate:"oneof=dynamodb memory"`
	Table          string        `yaml:"table" validate:"required_if=Backend dynamodb"`
	TenantIndex    string        `yaml:"tenant_index"`
	ConsistentRead bool          `yaml:"consistent_read"`
	LookupTimeout  time.Duration `yaml:"lookup_timeout" validate:"gt=0"`

	// Users seeds the memory backend.
	Users []policystore.UserPolicyRecord `yaml:"users"`
}

type SharingConfig struct {
	Backend   string        `yaml:"backend" validate:"oneof=dynamodb memory none"`
	Table     string        `yaml:"table" validate:"required_if=Backend dynamodb"`
	Cache     string        `yaml:"cache" validate:"oneof=memory redis none"`
	CacheTTL  time.Duration `yaml:"cache_ttl" validate:"gte=0"`
	RedisURL  string        `yaml:"redis_url" validate:"required_if=Cache redis"`
	KeyPrefix string        `yaml:"key_prefix"`
}

// TenantsConfig enables the tenant status check. Tokens of missing or
// inactive tenants are rejected when Backend is not none.
type TenantsConfig struct {
	Backend  string        `yaml:"backend" validate:"oneof=dynamodb memory none"`
	Table    string        `yaml:"table" validate:"required_if=Backend dynamodb"`
	Cache    string        `yaml:"cache" validate:"oneof=memory none"`
	CacheTTL time.Duration `yaml:"cache_ttl" validate:"gte=0"`

	// Records seeds the memory backend.
	Records []policystore.TenantRecord `yaml:"records" validate:"dive"`
}

type PolicyEngineConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Mode      string `yaml:"mode"`
	GatewayID string `yaml:"gateway_id" validate:"required_if=Enabled true"`
	Endpoint  string `yaml:"endpoint" validate:"omitempty,url"`
	Region    string `yaml:"region"`
}

type AWSConfig struct {
	Region string `yaml:"region"`

	// Endpoint overrides the DynamoDB endpoint, e.g. for DynamoDB Local.
	Endpoint string `yaml:"endpoint" validate:"omitempty,url"`
}

// SecretsConfig lists secret providers to create by name, with their
// provider-specific settings. The env provider is always available.
type SecretsConfig struct {
	Providers map[string]map[string]any `yaml:"providers"`
}

// Default returns the configuration used for every omitted setting.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			ShutdownTimeout:   15 * time.Second,
			InvocationTimeout: 5 * time.Second,
			MaxBodyBytes:      1 << 20,
		},
		Auth: AuthConfig{
			JWKSCacheTTL: time.Hour,
			TokenUse:     "id",
			Algorithms:   []string{"RS256"},
		},
		Interceptor: InterceptorConfig{
			SystemTools:       []string{interceptor.DefaultSystemTool},
			NamespaceArgument: interceptor.DefaultNamespaceArgument,
			ResourceArgument:  interceptor.DefaultResourceArgument,
		},
		PolicyStore: PolicyStoreConfig{
			Backend:       BackendDynamoDB,
			Table:         "AuthPolicyTable",
			TenantIndex:   policystore.DefaultTenantIndex,
			LookupTimeout: 2 * time.Second,
		},
		Sharing: SharingConfig{
			Backend:  BackendNone,
			Cache:    CacheMemory,
			CacheTTL: 60 * time.Second,
		},
		Tenants: TenantsConfig{
			Backend:  BackendNone,
			Cache:    CacheMemory,
			CacheTTL: 5 * time.Minute,
		},
		PolicyEngine: PolicyEngineConfig{
			Mode: string(policyengine.ModeLogOnly),
		},
		Observe: observe.Config{
			ServiceName: "gatewayauthz",
			Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "prometheus"},
			Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration and normalizes the policy engine mode.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Namespace()+":"+fe.Tag())
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	mode, err := policyengine.ParseMode(c.PolicyEngine.Mode)
	if err != nil {
		return fmt.Errorf("%w: policy_engine.mode: %w", ErrInvalid, err)
	}
	c.PolicyEngine.Mode = string(mode)

	if err := c.Observe.Validate(); err != nil {
		return fmt.Errorf("%w: observe: %w", ErrInvalid, err)
	}
	return nil
}

// PolicyEngineRegion is the region used to sign Policy Engine requests. An
// empty result defers to the AWS default configuration chain.
func (c *Config) PolicyEngineRegion() string {
	if c.PolicyEngine.Region != "" {
		return c.PolicyEngine.Region
	}
	return c.AWS.Region
}
