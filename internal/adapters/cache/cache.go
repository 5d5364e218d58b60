// Package cache defines the TTL-bounded memoization used by the ranking
// engine, with in-memory and Redis backends behind one interface.
package cache

import (
	"context"
	"time"
)

// Cache is TTL-bounded memoization keyed by an opaque string. Values are
// opaque bytes so backends do not care what is stored.
type Cache interface {
	// Get returns the value for key, or ok=false if absent or expired. An
	// expired entry is never returned regardless of eviction strategy.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set overwrites key unconditionally with expiry at now + ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
