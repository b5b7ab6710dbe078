package cache

import "time"

// Policy configures expiry for cached values.
type Policy struct {
	// DefaultTTL is the TTL to use when none is specified.
	// If zero, entries do not expire.
	DefaultTTL time.Duration

	// MaxTTL is the maximum allowed TTL. Override TTLs are clamped to this.
	// If zero, no maximum is enforced.
	MaxTTL time.Duration

	// GroupTTL overrides DefaultTTL for individual object cache groups.
	GroupTTL map[string]time.Duration

	// Disabled turns every Set into a no-op.
	Disabled bool
}

// DefaultPolicy returns the default caching policy.
// DefaultTTL: 1 hour, MaxTTL: 24 hours.
func DefaultPolicy() Policy {
	return Policy{
		DefaultTTL: time.Hour,
		MaxTTL:     24 * time.Hour,
	}
}

// NoCachePolicy returns a policy that disables caching entirely.
func NoCachePolicy() Policy {
	return Policy{Disabled: true}
}

// ShouldCache returns true if caching is enabled by this policy.
func (p Policy) ShouldCache() bool {
	return !p.Disabled
}

// EffectiveTTL returns the TTL to use, applying defaults and clamping.
// Zero means no expiry.
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	// Use default if no override (or negative override)
	ttl := override
	if ttl <= 0 {
		ttl = p.DefaultTTL
	}

	// Clamp to MaxTTL if set
	if p.MaxTTL > 0 && (ttl <= 0 || ttl > p.MaxTTL) {
		ttl = p.MaxTTL
	}

	return ttl
}

// TTLFor is EffectiveTTL with the group's default applied first.
func (p Policy) TTLFor(group string, override time.Duration) time.Duration {
	if override <= 0 {
		if ttl, ok := p.GroupTTL[group]; ok && ttl > 0 {
			override = ttl
		}
	}
	return p.EffectiveTTL(override)
}
