package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-jose/go-jose/v4"
	"golang.org/x/sync/singleflight"
)

// JWKSConfig configures the JWKS key provider.
type JWKSConfig struct {
	// URL is the JWKS endpoint URL.
	URL string

	// CacheTTL is how long to cache keys before refreshing.
	// Default: 1 hour
	CacheTTL time.Duration

	// HTTPClient is the HTTP client to use for requests.
	// If nil, a default client with 10s timeout is used.
	HTTPClient *http.Client
}

// JWKSKeyProvider retrieves signing keys from a JWKS endpoint.
// Keys are cached for CacheTTL and refreshed on demand; concurrent refreshes
// collapse into one request.
type JWKSKeyProvider struct {
	config JWKSConfig

	mu          sync.RWMutex
	keys        map[string]any
	cacheTime   time.Time
	lastFetched map[string]any
	sfGroup     singleflight.Group
}

// NewJWKSKeyProvider creates a new JWKS key provider.
func NewJWKSKeyProvider(config JWKSConfig) *JWKSKeyProvider {
	if config.CacheTTL == 0 {
		config.CacheTTL = time.Hour
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{
			Timeout: 10 * time.Second,
		}
	}

	return &JWKSKeyProvider{
		config:      config,
		keys:        make(map[string]any),
		lastFetched: make(map[string]any),
	}
}

// GetKey returns the key for the given key ID.
// If keyID is empty and exactly one key is cached, that key is returned.
func (p *JWKSKeyProvider) GetKey(ctx context.Context, keyID string) (any, error) {
	p.mu.RLock()
	if time.Since(p.cacheTime) < p.config.CacheTTL {
		key := lookup(p.keys, keyID)
		p.mu.RUnlock()
		if key != nil {
			return key, nil
		}
	} else {
		p.mu.RUnlock()
	}

	_, err, _ := p.sfGroup.Do("refresh", func() (any, error) {
		return nil, p.Refresh(ctx)
	})
	if err != nil {
		p.mu.RLock()
		key := lookup(p.keys, keyID)
		if key == nil {
			key = lookup(p.lastFetched, keyID)
		}
		p.mu.RUnlock()

		if key != nil {
			return key, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrKeyNotFound, err)
	}

	p.mu.RLock()
	key := lookup(p.keys, keyID)
	p.mu.RUnlock()

	if key == nil {
		return nil, ErrKeyNotFound
	}
	return key, nil
}

// KeyCount returns the number of currently cached keys.
func (p *JWKSKeyProvider) KeyCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.keys)
}

func lookup(keys map[string]any, keyID string) any {
	if keyID == "" {
		if len(keys) != 1 {
			return nil
		}
		for _, key := range keys {
			return key
		}
	}
	return keys[keyID]
}

// Refresh fetches the key set from the JWKS endpoint.
func (p *JWKSKeyProvider) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.URL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := p.config.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch JWKS: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var raw struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := sonic.ConfigStd.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return fmt.Errorf("decode JWKS: %w", err)
	}

	keys := make(map[string]any, len(raw.Keys))
	for _, entry := range raw.Keys {
		var jwk jose.JSONWebKey
		if err := jwk.UnmarshalJSON(entry); err != nil {
			continue
		}
		if !jwk.Valid() || !jwk.IsPublic() || (jwk.Use != "" && jwk.Use != "sig") {
			continue
		}
		switch k := jwk.Key.(type) {
		case *rsa.PublicKey, *ecdsa.PublicKey:
			keys[jwk.KeyID] = k
		}
	}
	if len(keys) == 0 {
		return fmt.Errorf("JWKS contains no usable signing keys")
	}

	p.mu.Lock()
	p.keys = keys
	p.cacheTime = time.Now()
	for kid, key := range keys {
		p.lastFetched[kid] = key
	}
	p.mu.Unlock()

	return nil
}

var _ KeyProvider = (*JWKSKeyProvider)(nil)

// StaticKeyProvider serves a fixed set of public keys.
type StaticKeyProvider struct {
	keys map[string]any
}

// NewStaticKeyProvider creates a provider from kid-to-key pairs.
func NewStaticKeyProvider(keys map[string]any) *StaticKeyProvider {
	copied := make(map[string]any, len(keys))
	for k, v := range keys {
		copied[k] = v
	}
	return &StaticKeyProvider{keys: copied}
}

// GetKey returns the key registered under keyID.
func (p *StaticKeyProvider) GetKey(_ context.Context, keyID string) (any, error) {
	if key := lookup(p.keys, keyID); key != nil {
		return key, nil
	}
	return nil, ErrKeyNotFound
}

var _ KeyProvider = (*StaticKeyProvider)(nil)
