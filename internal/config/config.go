// Package config defines engine configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) to build a Config with defaults.
// - Layer defaults -> optional YAML file -> environment variables.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8090".
	Addr string `koanf:"addr"`

	// TickIntervalMS is the assisted-mode monitor loop cadence.
	TickIntervalMS int `koanf:"tick_interval_ms"`

	// CallTimeoutMS bounds every external call (store, generator, cache).
	CallTimeoutMS int `koanf:"call_timeout_ms"`

	// CacheTTLSeconds is how long computed rankings stay cached.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// CacheBackend selects the ranking cache: "memory" or "redis".
	CacheBackend string `koanf:"cache_backend"`

	// RedisAddr is the Redis address used when CacheBackend is "redis".
	RedisAddr string `koanf:"redis_addr"`

	// OpenAIModel selects the chat model for coaching text. The API key is
	// read from OPENAI_API_KEY; when unset the canned generator is used.
	OpenAIModel string `koanf:"openai_model"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":8090",
		TickIntervalMS:  3_000,
		CallTimeoutMS:   5_000,
		CacheTTLSeconds: 300,
		CacheBackend:    "memory",
		RedisAddr:       "localhost:6379",
		OpenAIModel:     "",
	}
}
