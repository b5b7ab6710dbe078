package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// LoadFunc computes a value on a cache miss.
type LoadFunc func(ctx context.Context) ([]byte, error)

// SkipRule determines whether to bypass the cache for a key.
// Returns true if caching should be skipped.
type SkipRule func(ctx context.Context, key string) bool

type bypassKey struct{}

// WithBypass returns a context under which DefaultSkipRule bypasses the
// cache, for callers that asked for fresh results.
func WithBypass(ctx context.Context) context.Context {
	return context.WithValue(ctx, bypassKey{}, true)
}

// Bypassed reports whether ctx was marked with WithBypass.
func Bypassed(ctx context.Context) bool {
	v, _ := ctx.Value(bypassKey{}).(bool)
	return v
}

// DefaultSkipRule skips caching for contexts marked with WithBypass.
func DefaultSkipRule(ctx context.Context, _ string) bool {
	return Bypassed(ctx)
}

// Loader wraps computations with get-or-compute caching.
//
// Concurrent misses for the same key are collapsed into one call of the
// LoadFunc; the callers that joined receive its result. Errors are never
// cached.
type Loader struct {
	cache    Cache
	policy   Policy
	skipRule SkipRule
	flight   singleflight.Group
}

// NewLoader creates a new loader.
// If skipRule is nil, DefaultSkipRule is used.
func NewLoader(cache Cache, policy Policy, skipRule SkipRule) *Loader {
	if skipRule == nil {
		skipRule = DefaultSkipRule
	}
	return &Loader{
		cache:    cache,
		policy:   policy,
		skipRule: skipRule,
	}
}

// Load returns the cached value for key, or computes, stores and returns
// it. hit reports whether the value came from the cache.
func (l *Loader) Load(ctx context.Context, key string, ttl time.Duration, fn LoadFunc) (value []byte, hit bool, err error) {
	// Check if caching should be skipped
	if l.skipRule(ctx, key) || !l.policy.ShouldCache() {
		value, err = fn(ctx)
		return value, false, err
	}

	if err := ValidateKey(key); err != nil {
		// Invalid key - execute without caching
		value, err = fn(ctx)
		return value, false, err
	}

	if cached, ok := l.cache.Get(ctx, key); ok {
		return cached, true, nil
	}

	v, err, _ := l.flight.Do(key, func() (any, error) {
		// Another flight may have filled the entry since our lookup.
		if cached, ok := l.cache.Get(ctx, key); ok {
			return cached, nil
		}
		result, err := fn(ctx)
		if err != nil {
			// Don't cache errors
			return nil, err
		}
		_ = l.cache.Set(ctx, key, result, l.policy.EffectiveTTL(ttl))
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.([]byte), false, nil
}

// Forget drops any in-flight computation for key so the next Load starts
// a new one.
func (l *Loader) Forget(key string) {
	l.flight.Forget(key)
}
