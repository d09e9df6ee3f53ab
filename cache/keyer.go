package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Keyer derives a cache key from the looked-up entity and the caller's
// tenant. Keys for different (entity, tenant) pairs never collide.
//
// Contract:
// - Determinism: same inputs must produce the same key.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	Key(entity, tenant string) (string, error)
}

// CompositeKeyer builds "<prefix>:<entity>:<tenant>" keys. Components are
// escaped so that a ':' inside an entity cannot shift the tenant boundary.
// Keys longer than MaxKeyLength are replaced by a SHA-256 digest form.
type CompositeKeyer struct {
	Prefix string
}

// NewCompositeKeyer creates a keyer with the given namespace prefix.
func NewCompositeKeyer(prefix string) *CompositeKeyer {
	return &CompositeKeyer{Prefix: prefix}
}

var keyEscaper = strings.NewReplacer(`\`, `\\`, ":", `\:`)

// Key builds the composite key.
func (k *CompositeKeyer) Key(entity, tenant string) (string, error) {
	if entity == "" || tenant == "" {
		return "", ErrInvalidKey
	}
	var b strings.Builder
	if k.Prefix != "" {
		b.WriteString(keyEscaper.Replace(k.Prefix))
		b.WriteByte(':')
	}
	b.WriteString(keyEscaper.Replace(entity))
	b.WriteByte(':')
	b.WriteString(keyEscaper.Replace(tenant))
	key := b.String()

	if len(key) > MaxKeyLength {
		sum := sha256.Sum256([]byte(key))
		key = k.Prefix + ":sha256:" + hex.EncodeToString(sum[:])
	}
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}

var _ Keyer = (*CompositeKeyer)(nil)
