package cache

import "context"

// LoaderFunc resolves a boolean decision for (entity, tenant) on a miss.
type LoaderFunc func(ctx context.Context, entity, tenant string) (bool, error)

var (
	trueValue  = []byte{1}
	falseValue = []byte{0}
)

// Memo caches boolean lookup decisions.
//
// Contract:
// - Errors from the loader are returned and never cached.
// - A cache that cannot be written does not change the decision.
type Memo struct {
	cache  Cache
	keyer  Keyer
	policy Policy
}

// NewMemo creates a decision memoizer. A nil keyer uses NewCompositeKeyer("").
func NewMemo(cache Cache, keyer Keyer, policy Policy) *Memo {
	if keyer == nil {
		keyer = NewCompositeKeyer("")
	}
	return &Memo{cache: cache, keyer: keyer, policy: policy}
}

// Do returns the cached decision or calls load and caches its result.
func (m *Memo) Do(ctx context.Context, entity, tenant string, load LoaderFunc) (bool, error) {
	if m == nil || m.cache == nil || !m.policy.ShouldCache() {
		return load(ctx, entity, tenant)
	}

	key, err := m.keyer.Key(entity, tenant)
	if err != nil {
		return load(ctx, entity, tenant)
	}

	if cached, ok := m.cache.Get(ctx, key); ok && len(cached) == 1 {
		return cached[0] == 1, nil
	}

	result, err := load(ctx, entity, tenant)
	if err != nil {
		return false, err
	}

	if result || m.policy.CacheNegative {
		value := falseValue
		if result {
			value = trueValue
		}
		_ = m.cache.Set(ctx, key, value, m.policy.EffectiveTTL(0))
	}
	return result, nil
}

// Invalidate drops the cached decision for (entity, tenant).
func (m *Memo) Invalidate(ctx context.Context, entity, tenant string) error {
	if m == nil || m.cache == nil {
		return ErrNilCache
	}
	key, err := m.keyer.Key(entity, tenant)
	if err != nil {
		return err
	}
	return m.cache.Delete(ctx, key)
}
