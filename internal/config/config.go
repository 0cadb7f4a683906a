// Package config defines service configuration structures and loading hooks.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreBackend selects the leaderboard store: memory, sqlite, or redis.
	StoreBackend string `koanf:"store_backend"`

	// SQLitePath locates the sqlite database file for the sqlite backend.
	SQLitePath string `koanf:"sqlite_path"`

	// RedisURL points at the redis instance for the redis backend.
	RedisURL string `koanf:"redis_url"`

	// SecretName names the HMAC signing secret to resolve.
	SecretName string `koanf:"secret_name"`

	// SecretTTLSecs bounds how long a resolved secret is cached. Zero
	// caches forever.
	SecretTTLSecs int `koanf:"secret_ttl_secs"`

	// MaxScore is the inclusive upper bound for submitted scores.
	MaxScore int64 `koanf:"max_score"`

	// TimestampSkewSecs is the allowed clock drift for submissions.
	TimestampSkewSecs int `koanf:"timestamp_skew_secs"`

	// StoreTimeoutMS bounds each store round trip. Zero disables the bound.
	StoreTimeoutMS int `koanf:"store_timeout_ms"`

	// NonceReplayGuard rejects reused nonces when enabled. Off by default:
	// the wire contract only requires nonces to be well-formed.
	NonceReplayGuard bool `koanf:"nonce_replay_guard"`

	// NonceCacheSize bounds the replay guard's sliding window.
	NonceCacheSize int `koanf:"nonce_cache_size"`

	// EntryTTLSecs stores an expiry hint on sqlite entries. Zero disables.
	EntryTTLSecs int `koanf:"entry_ttl_secs"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9080",
		StoreBackend:      "memory",
		SQLitePath:        "podium.db",
		RedisURL:          "redis://localhost:6379/0",
		SecretName:        "leaderboard/hmac-key",
		SecretTTLSecs:     300,
		MaxScore:          100_000_000,
		TimestampSkewSecs: 300,
		StoreTimeoutMS:    2_000,
		NonceReplayGuard:  false,
		NonceCacheSize:    50_000,
	}
}
