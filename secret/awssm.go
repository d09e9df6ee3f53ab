package secret

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/bytedance/sonic"

	"github.com/jonwraymond/gatewayauthz/cache"
)

// SecretsManagerProviderName is the provider name used in references.
const SecretsManagerProviderName = "awssm"

// DefaultSecretTTL bounds how long a fetched secret is reused.
const DefaultSecretTTL = 5 * time.Minute

// SecretsManagerAPI is the subset of the Secrets Manager client used here.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManagerProvider resolves references against AWS Secrets Manager.
//
// A reference is a secret id, optionally followed by #<key> to select one
// field of a JSON secret: "prod/gatewayauthz#redis_password".
type SecretsManagerProvider struct {
	client SecretsManagerAPI
	cache  cache.Cache
	ttl    time.Duration
}

// SecretsManagerOption configures a SecretsManagerProvider.
type SecretsManagerOption func(*SecretsManagerProvider)

// WithSecretCache stores fetched secret strings in c for ttl.
// A non-positive ttl disables caching.
func WithSecretCache(c cache.Cache, ttl time.Duration) SecretsManagerOption {
	return func(p *SecretsManagerProvider) {
		p.cache = c
		p.ttl = ttl
	}
}

// NewSecretsManagerProvider wraps client. Secrets are cached in process for
// DefaultSecretTTL unless overridden.
func NewSecretsManagerProvider(client SecretsManagerAPI, opts ...SecretsManagerOption) *SecretsManagerProvider {
	p := &SecretsManagerProvider{
		client: client,
		cache:  cache.NewMemoryCache(),
		ttl:    DefaultSecretTTL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewSecretsManagerProviderFromConfig builds a provider from registry
// configuration. Recognized keys: region, endpoint.
func NewSecretsManagerProviderFromConfig(ctx context.Context, cfg map[string]any) (Provider, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if region, _ := cfg["region"].(string); region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("awssm: load aws config: %w", err)
	}

	endpoint, _ := cfg["endpoint"].(string)
	client := secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return NewSecretsManagerProvider(client), nil
}

func (p *SecretsManagerProvider) Name() string { return SecretsManagerProviderName }

func (p *SecretsManagerProvider) Close() error { return nil }

func (p *SecretsManagerProvider) Resolve(ctx context.Context, ref string) (string, error) {
	id, key, _ := strings.Cut(ref, "#")
	if id == "" {
		return "", fmt.Errorf("awssm: %w: empty secret id", ErrInvalidRef)
	}

	raw, err := p.secretString(ctx, id)
	if err != nil {
		return "", err
	}
	if key == "" {
		return raw, nil
	}

	var fields map[string]any
	if err := sonic.ConfigStd.UnmarshalFromString(raw, &fields); err != nil {
		return "", fmt.Errorf("awssm: secret %q is not a JSON object: %w", id, ErrInvalidRef)
	}
	v, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("awssm: key %q in %q: %w", key, id, ErrNotFound)
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprint(v), nil
}

func (p *SecretsManagerProvider) secretString(ctx context.Context, id string) (string, error) {
	cacheKey := "awssm:" + id
	if p.cache != nil && p.ttl > 0 {
		if b, ok := p.cache.Get(ctx, cacheKey); ok {
			return string(b), nil
		}
	}

	out, err := p.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(id)})
	if err != nil {
		var nf *types.ResourceNotFoundException
		if errors.As(err, &nf) {
			return "", fmt.Errorf("awssm: %q: %w", id, ErrNotFound)
		}
		return "", fmt.Errorf("awssm: get %q: %w", id, err)
	}

	var value string
	switch {
	case out.SecretString != nil:
		value = *out.SecretString
	case out.SecretBinary != nil:
		value = string(out.SecretBinary)
	default:
		return "", fmt.Errorf("awssm: %q has no value: %w", id, ErrNotFound)
	}

	if p.cache != nil && p.ttl > 0 {
		_ = p.cache.Set(ctx, cacheKey, []byte(value), p.ttl)
	}
	return value, nil
}
