package cache

import "time"

// MemoryOption applies a configuration option to the MemoryCache.
type MemoryOption func(*MemoryCache)

// WithNowFunc overrides the clock, for tests.
func WithNowFunc(now func() time.Time) MemoryOption {
	return func(c *MemoryCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithSweepInterval sets how often the background sweep removes expired
// entries.
func WithSweepInterval(interval time.Duration) MemoryOption {
	return func(c *MemoryCache) {
		if interval > 0 {
			c.sweepInterval = interval
		}
	}
}
