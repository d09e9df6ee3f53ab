package secret

import (
	"context"
	"fmt"
	"os"
)

// Provider resolves secrets by reference string.
//
// Implementations must be safe for concurrent use and must not log secret values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
	Close() error
}

// EnvProvider resolves references as environment variable names.
type EnvProvider struct{}

// NewEnvProvider returns the environment provider.
func NewEnvProvider() *EnvProvider { return &EnvProvider{} }

func (*EnvProvider) Name() string { return "env" }

func (*EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := os.LookupEnv(ref)
	if !ok {
		return "", fmt.Errorf("env %q: %w", ref, ErrNotFound)
	}
	return v, nil
}

func (*EnvProvider) Close() error { return nil }
