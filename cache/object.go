package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// LastChangedKey is the key under which a group's last_changed value is
// stored.
const LastChangedKey = "last_changed"

const keyPrefix = "bp:"

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cache: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Marshal encodes v the way ObjectCache stores values.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes data produced by Marshal into dst.
func Unmarshal(data []byte, dst any) error {
	return cbor.Unmarshal(data, dst)
}

// ObjectCache addresses a Cache backend by group and key and stores
// CBOR-encoded values.
//
// Every group carries a generation salt that is part of each storage key,
// so FlushGroup invalidates the whole group with a single write. Groups
// also carry a last_changed incrementor that callers fold into derived
// keys (query result keys) to invalidate them without enumerating them.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: lookups report decode failures; a corrupt entry is deleted.
type ObjectCache struct {
	backend Cache
	policy  Policy
	loader  *Loader

	mu          sync.Mutex
	lastChanged map[string]int64
}

// NewObjectCache wraps backend. A nil backend gets a MemoryCache using
// policy.
func NewObjectCache(backend Cache, policy Policy) *ObjectCache {
	if backend == nil {
		backend = NewMemoryCache(policy)
	}
	return &ObjectCache{
		backend:     backend,
		policy:      policy,
		loader:      NewLoader(backend, policy, nil),
		lastChanged: make(map[string]int64),
	}
}

// Backend returns the underlying byte cache.
func (c *ObjectCache) Backend() Cache { return c.backend }

// Get decodes the value stored under group/key into dst.
func (c *ObjectCache) Get(ctx context.Context, group, key string, dst any) (bool, error) {
	sk, err := c.storageKey(ctx, group, key)
	if err != nil {
		return false, err
	}
	data, ok := c.backend.Get(ctx, sk)
	if !ok {
		return false, nil
	}
	if err := Unmarshal(data, dst); err != nil {
		_ = c.backend.Delete(ctx, sk)
		return false, fmt.Errorf("cache: decode %s/%s: %w", group, key, err)
	}
	return true, nil
}

// Set stores v under group/key. A ttl of zero uses the group's TTL.
func (c *ObjectCache) Set(ctx context.Context, group, key string, v any, ttl time.Duration) error {
	sk, err := c.storageKey(ctx, group, key)
	if err != nil {
		return err
	}
	data, err := Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: encode %s/%s: %w", group, key, err)
	}
	return c.backend.Set(ctx, sk, data, c.policy.TTLFor(group, ttl))
}

// Delete removes group/key.
func (c *ObjectCache) Delete(ctx context.Context, group, key string) error {
	sk, err := c.storageKey(ctx, group, key)
	if err != nil {
		return err
	}
	return c.backend.Delete(ctx, sk)
}

// SetMultiple stores every item in group.
func (c *ObjectCache) SetMultiple(ctx context.Context, group string, items map[string]any, ttl time.Duration) error {
	for key, v := range items {
		if err := c.Set(ctx, group, key, v, ttl); err != nil {
			return err
		}
	}
	return nil
}

// DeleteMultiple removes keys from group.
func (c *ObjectCache) DeleteMultiple(ctx context.Context, group string, keys []string) error {
	for _, key := range keys {
		if err := c.Delete(ctx, group, key); err != nil {
			return err
		}
	}
	return nil
}

// GetMultiple returns the values found for keys in group. Missing and
// undecodable keys are absent from the result.
func GetMultiple[T any](ctx context.Context, c *ObjectCache, group string, keys []string) (map[string]T, error) {
	out := make(map[string]T, len(keys))
	for _, key := range keys {
		var v T
		ok, err := c.Get(ctx, group, key, &v)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		if ok {
			out[key] = v
		}
	}
	return out, nil
}

// Remember decodes the cached value for group/key into dst, or calls fn,
// caches its result and decodes that into dst. Concurrent misses share
// one call of fn.
func (c *ObjectCache) Remember(ctx context.Context, group, key string, ttl time.Duration, dst any, fn func(ctx context.Context) (any, error)) (bool, error) {
	sk, err := c.storageKey(ctx, group, key)
	if err != nil {
		return false, err
	}
	data, hit, err := c.loader.Load(ctx, sk, c.policy.TTLFor(group, ttl), func(ctx context.Context) ([]byte, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return Marshal(v)
	})
	if err != nil {
		return false, err
	}
	if err := Unmarshal(data, dst); err != nil {
		_ = c.backend.Delete(ctx, sk)
		return false, fmt.Errorf("cache: decode %s/%s: %w", group, key, err)
	}
	return hit, nil
}

// FlushGroup invalidates every key in group, including its last_changed
// value.
func (c *ObjectCache) FlushGroup(ctx context.Context, group string) error {
	if err := validateGroup(group); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backend.Set(ctx, generationKey(group), []byte(uuid.NewString()), 0)
}

// LastChanged returns the group's last_changed value, initializing it
// when absent.
func (c *ObjectCache) LastChanged(ctx context.Context, group string) (string, error) {
	var v string
	ok, err := c.Get(ctx, group, LastChangedKey, &v)
	if err == nil && ok && v != "" {
		return v, nil
	}
	return c.BumpLastChanged(ctx, group)
}

// BumpLastChanged sets the group's last_changed value to a new value that
// sorts after every value this cache produced before.
func (c *ObjectCache) BumpLastChanged(ctx context.Context, group string) (string, error) {
	if err := validateGroup(group); err != nil {
		return "", err
	}

	c.mu.Lock()
	next := time.Now().UnixNano()
	if prev := c.lastChanged[group]; next <= prev {
		next = prev + 1
	}
	c.lastChanged[group] = next
	c.mu.Unlock()

	v := strconv.FormatInt(next, 10)
	if err := c.Set(ctx, group, LastChangedKey, v, 0); err != nil {
		return "", err
	}
	return v, nil
}

func (c *ObjectCache) storageKey(ctx context.Context, group, key string) (string, error) {
	if err := validateGroup(group); err != nil {
		return "", err
	}
	if key == "" {
		return "", ErrInvalidKey
	}
	gen, err := c.generation(ctx, group)
	if err != nil {
		return "", err
	}
	sk := keyPrefix + group + ":" + gen + ":" + key
	if len(sk) > MaxKeyLength || strings.ContainsAny(key, "\r\n") {
		sum := sha256.Sum256([]byte(key))
		sk = keyPrefix + group + ":" + gen + ":#" + hex.EncodeToString(sum[:])
	}
	return sk, nil
}

// generation returns the group's salt, creating one when missing. An
// evicted salt only orphans the group's entries.
func (c *ObjectCache) generation(ctx context.Context, group string) (string, error) {
	gk := generationKey(group)
	if gen, ok := c.backend.Get(ctx, gk); ok && len(gen) > 0 {
		return string(gen), nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen, ok := c.backend.Get(ctx, gk); ok && len(gen) > 0 {
		return string(gen), nil
	}
	gen := uuid.NewString()
	if err := c.backend.Set(ctx, gk, []byte(gen), 0); err != nil {
		return "", err
	}
	return gen, nil
}

func generationKey(group string) string {
	return keyPrefix + group + ":generation"
}

func validateGroup(group string) error {
	if group == "" || strings.ContainsAny(group, ": \t\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidGroup, group)
	}
	return nil
}
