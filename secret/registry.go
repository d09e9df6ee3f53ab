package secret

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ProviderFactory creates a Provider from configuration.
type ProviderFactory func(ctx context.Context, cfg map[string]any) (Provider, error)

// Registry maps provider names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ProviderFactory)}
}

// NewDefaultRegistry returns a registry with the env and awssm providers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register("env", func(context.Context, map[string]any) (Provider, error) {
		return NewEnvProvider(), nil
	})
	_ = r.Register(SecretsManagerProviderName, NewSecretsManagerProviderFromConfig)
	return r
}

// Register adds a provider factory.
func (r *Registry) Register(name string, factory ProviderFactory) error {
	name = strings.TrimSpace(name)
	if name == "" || factory == nil {
		return errors.New("secret: invalid provider registration")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("secret: provider %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Create instantiates a provider by name.
func (r *Registry) Create(ctx context.Context, name string, cfg map[string]any) (Provider, error) {
	name = strings.TrimSpace(name)
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotRegistered, name)
	}
	return factory(ctx, cfg)
}

// List returns registered provider names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
