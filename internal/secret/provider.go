// Package secret resolves the HMAC signing secret from its configured
// source and caches it so the hot path never blocks on the source.
package secret

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/okian/podium/pkg/metrics"
)

// ErrNotFound indicates the named secret does not exist at the source.
var ErrNotFound = errors.New("secret not found")

// Provider fetches a named secret.
type Provider interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// EnvProvider reads secrets from environment variables. The secret name is
// upper-cased and non-alphanumeric runes become underscores, so the secret
// "leaderboard/hmac-key" resolves from LEADERBOARD_HMAC_KEY.
type EnvProvider struct{}

// NewEnvProvider constructs an environment-backed provider.
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{}
}

// GetSecret implements Provider.
func (p *EnvProvider) GetSecret(_ context.Context, name string) (string, error) {
	key := envKey(name)
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return v, nil
}

func envKey(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// StaticProvider returns a fixed secret. Meant for tests and local runs.
type StaticProvider struct {
	value string
}

// NewStaticProvider constructs a provider that always returns value.
func NewStaticProvider(value string) *StaticProvider {
	return &StaticProvider{value: value}
}

// GetSecret implements Provider.
func (p *StaticProvider) GetSecret(context.Context, string) (string, error) {
	if p.value == "" {
		return "", ErrNotFound
	}
	return p.value, nil
}

// Cached wraps a Provider and memoizes its answers per secret name. A TTL of
// zero caches forever; Invalidate forces a refetch, e.g. after a rotation.
type Cached struct {
	inner Provider
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	value     string
	fetchedAt time.Time
}

// CachedOption applies a configuration option to Cached.
type CachedOption func(*Cached)

// WithTTL bounds how long a fetched secret is reused. Zero means forever.
func WithTTL(ttl time.Duration) CachedOption {
	return func(c *Cached) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// NewCached wraps inner with a per-name cache.
func NewCached(inner Provider, opts ...CachedOption) *Cached {
	c := &Cached{
		inner:   inner,
		entries: make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetSecret implements Provider.
func (c *Cached) GetSecret(ctx context.Context, name string) (string, error) {
	c.mu.RLock()
	e, ok := c.entries[name]
	c.mu.RUnlock()
	if ok && c.fresh(e) {
		return e.value, nil
	}

	v, err := c.inner.GetSecret(ctx, name)
	if err != nil {
		// Serve the stale value rather than failing the request.
		if ok {
			return e.value, nil
		}
		return "", err
	}
	metrics.RecordSecretRefresh()

	c.mu.Lock()
	c.entries[name] = cacheEntry{value: v, fetchedAt: time.Now()}
	c.mu.Unlock()
	return v, nil
}

// Invalidate drops the cached value for name so the next read refetches.
func (c *Cached) Invalidate(name string) {
	c.mu.Lock()
	delete(c.entries, name)
	c.mu.Unlock()
}

func (c *Cached) fresh(e cacheEntry) bool {
	if c.ttl <= 0 {
		return true
	}
	return time.Since(e.fetchedAt) < c.ttl
}
