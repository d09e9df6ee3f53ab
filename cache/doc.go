// Package cache provides TTL-bound caches for authorization lookups.
//
// It provides a Cache interface with in-memory and Redis implementations,
// tenant-scoped composite keys, and a Memo that memoizes boolean decisions
// such as "is this resource shared with this tenant". Caches only accelerate
// lookups; an empty cache yields the same decisions.
package cache
