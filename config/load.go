package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/gatewayauthz/secret"
)

// Option configures loading.
type Option func(*loader)

type loader struct {
	registry *secret.Registry
	lookup   func(string) (string, bool)
}

// WithRegistry sets the registry used to create secret providers.
// Default: secret.NewDefaultRegistry()
func WithRegistry(r *secret.Registry) Option {
	return func(l *loader) {
		if r != nil {
			l.registry = r
		}
	}
}

// WithLookupEnv overrides the environment lookup used by FromEnv.
func WithLookupEnv(lookup func(string) (string, bool)) Option {
	return func(l *loader) {
		if lookup != nil {
			l.lookup = lookup
		}
	}
}

func newLoader(opts []Option) *loader {
	l := &loader{registry: secret.NewDefaultRegistry(), lookup: os.LookupEnv}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the YAML file at path. Environment references in the file are
// expanded strictly before parsing.
func Load(ctx context.Context, path string, opts ...Option) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(ctx, data, opts...)
}

// Parse reads a YAML document, resolves secret references and validates
// the result. Unknown keys are rejected.
func Parse(ctx context.Context, data []byte, opts ...Option) (*Config, error) {
	l := newLoader(opts)

	expanded, err := secret.ExpandEnvStrict(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to expand config: %w", err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return l.finish(ctx, &cfg)
}

func (l *loader) finish(ctx context.Context, cfg *Config) (*Config, error) {
	if err := l.resolveSecrets(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to resolve secrets: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// secretFields are the settings that may hold secret references.
func secretFields(cfg *Config) []*string {
	return []*string{
		&cfg.Auth.JWKSURL,
		&cfg.Auth.ClientID,
		&cfg.Auth.Issuer,
		&cfg.Sharing.RedisURL,
		&cfg.PolicyEngine.GatewayID,
		&cfg.PolicyEngine.Endpoint,
		&cfg.AWS.Endpoint,
	}
}

func (l *loader) resolveSecrets(ctx context.Context, cfg *Config) error {
	var refs []*string
	for _, f := range secretFields(cfg) {
		if strings.Contains(*f, secret.RefPrefix) {
			refs = append(refs, f)
		}
	}
	if len(refs) == 0 {
		return nil
	}

	resolver := secret.NewResolver(true, secret.NewEnvProvider())
	defer resolver.Close()

	names := make([]string, 0, len(cfg.Secrets.Providers))
	for name := range cfg.Secrets.Providers {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		p, err := l.registry.Create(ctx, name, cfg.Secrets.Providers[name])
		if err != nil {
			return err
		}
		resolver.Register(p)
	}

	return resolver.ResolveInPlace(ctx, refs...)
}
