package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength bounds stored keys. Composite keys past it are digested by
// CompositeKeyer.
const MaxKeyLength = 512

var (
	ErrNilCache   = errors.New("cache: cache is nil")
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
)

// Cache holds warm-path lookup results, such as resource sharing decisions.
// It never decides anything itself: an empty or failing cache must yield the
// same authorization outcome as a warm one.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Get never errors; a backend failure reads as a miss.
// - TTL: Set with ttl <= 0 stores nothing.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete is idempotent.
	Delete(ctx context.Context, key string) error
}

// ValidateKey rejects blank keys, keys containing line breaks and keys longer
// than MaxKeyLength.
func ValidateKey(key string) error {
	switch {
	case strings.TrimSpace(key) == "", strings.ContainsAny(key, "\r\n"):
		return ErrInvalidKey
	case len(key) > MaxKeyLength:
		return ErrKeyTooLong
	}
	return nil
}
