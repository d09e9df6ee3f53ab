package secret

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// RefPrefix marks a secret reference.
const RefPrefix = "secretref:"

// Resolver expands environment variables and secret references.
type Resolver struct {
	providers map[string]Provider
	strict    bool
}

// NewResolver creates a resolver. A strict resolver rejects empty secrets.
func NewResolver(strict bool, providers ...Provider) *Resolver {
	r := &Resolver{providers: make(map[string]Provider), strict: strict}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a provider.
func (r *Resolver) Register(p Provider) {
	if p == nil {
		return
	}
	r.providers[p.Name()] = p
}

// Close closes every provider and joins their errors.
func (r *Resolver) Close() error {
	var errs []error
	for _, p := range r.providers {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}

// ParseSecretRef parses a full reference of the form secretref:<provider>:<ref>.
func ParseSecretRef(value string) (provider, ref string, ok bool) {
	rest, found := strings.CutPrefix(value, RefPrefix)
	if !found {
		return "", "", false
	}
	provider, ref, found = strings.Cut(rest, ":")
	if !found || provider == "" || ref == "" || strings.ContainsAny(ref, " \t\r\n") {
		return "", "", false
	}
	return provider, ref, true
}

var inlineRef = regexp.MustCompile(`secretref:([^:\s]+):(\S+)`)

// ResolveValue expands value and resolves every secret reference in it.
// A nil Resolver only expands the environment.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandEnvStrict(value)
	if err != nil || r == nil {
		return expanded, err
	}
	if provider, ref, ok := ParseSecretRef(expanded); ok {
		return r.resolve(ctx, provider, ref)
	}

	matches := inlineRef.FindAllStringSubmatchIndex(expanded, -1)
	if len(matches) == 0 && strings.HasPrefix(expanded, RefPrefix) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, expanded)
	}
	out := expanded
	// Replace back to front so earlier indexes stay valid.
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		resolved, err := r.resolve(ctx, out[m[2]:m[3]], out[m[4]:m[5]])
		if err != nil {
			return "", err
		}
		out = out[:m[0]] + resolved + out[m[1]:]
	}
	return out, nil
}

// ResolveInPlace resolves each pointed-to string, stopping at the first error.
func (r *Resolver) ResolveInPlace(ctx context.Context, fields ...*string) error {
	for _, f := range fields {
		if f == nil || *f == "" {
			continue
		}
		v, err := r.ResolveValue(ctx, *f)
		if err != nil {
			return err
		}
		*f = v
	}
	return nil
}

// ResolveMap resolves each value of input.
func (r *Resolver) ResolveMap(ctx context.Context, input map[string]string) (map[string]string, error) {
	if input == nil {
		return nil, nil
	}
	out := make(map[string]string, len(input))
	for k, v := range input {
		resolved, err := r.ResolveValue(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", k, err)
		}
		out[k] = resolved
	}
	return out, nil
}

func (r *Resolver) resolve(ctx context.Context, providerName, ref string) (string, error) {
	p, ok := r.providers[providerName]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrProviderNotRegistered, providerName)
	}
	v, err := p.Resolve(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("secret %s:%s: %w", providerName, ref, err)
	}
	if r.strict && v == "" {
		return "", fmt.Errorf("%w: %s:%s", ErrEmptyValue, providerName, ref)
	}
	return v, nil
}
