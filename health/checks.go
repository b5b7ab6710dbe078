package health

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jonwraymond/blockpress/cache"
)

// Pinger is implemented by the content store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DatabaseChecker pings the content database.
type DatabaseChecker struct {
	db Pinger

	// Slow marks the database degraded when a ping takes longer.
	Slow time.Duration
}

// NewDatabaseChecker returns a checker over db.
func NewDatabaseChecker(db Pinger) *DatabaseChecker {
	return &DatabaseChecker{db: db, Slow: 500 * time.Millisecond}
}

// Name returns "database".
func (c *DatabaseChecker) Name() string { return "database" }

// Check pings the database.
func (c *DatabaseChecker) Check(ctx context.Context) Result {
	start := time.Now()
	if err := c.db.Ping(ctx); err != nil {
		return Unhealthy("database unreachable", err)
	}
	if took := time.Since(start); c.Slow > 0 && took > c.Slow {
		return Degraded("database slow").WithDetails(map[string]any{"ping": took.String()})
	}
	return Healthy("database reachable")
}

// CacheGroup is the object cache group health probes write to.
const CacheGroup = "health"

// CacheChecker writes a value to the object cache and reads it back.
type CacheChecker struct {
	cache *cache.ObjectCache
}

// NewCacheChecker returns a checker over oc.
func NewCacheChecker(oc *cache.ObjectCache) *CacheChecker {
	return &CacheChecker{cache: oc}
}

// Name returns "cache".
func (c *CacheChecker) Name() string { return "cache" }

// Check performs a set/get/delete round trip.
func (c *CacheChecker) Check(ctx context.Context) Result {
	key := "probe"
	want := strconv.FormatInt(time.Now().UnixNano(), 10)

	if err := c.cache.Set(ctx, CacheGroup, key, want, time.Minute); err != nil {
		return Unhealthy("cache write failed", err)
	}
	var got string
	ok, err := c.cache.Get(ctx, CacheGroup, key, &got)
	switch {
	case err != nil:
		return Unhealthy("cache read failed", err)
	case !ok:
		// A cache that drops writes still lets rendering work.
		return Degraded("cache did not retain value")
	case got != want:
		return Unhealthy("cache returned wrong value", fmt.Errorf("%w: got %q", ErrRoundTrip, got))
	}
	_ = c.cache.Delete(ctx, CacheGroup, key)
	return Healthy("cache round trip ok")
}

// BlockTypeLister is implemented by the block type registry.
type BlockTypeLister interface {
	Names() []string
}

// BlockTypesChecker reports degraded when no block types are registered.
type BlockTypesChecker struct {
	registry BlockTypeLister
}

// NewBlockTypesChecker returns a checker over registry.
func NewBlockTypesChecker(registry BlockTypeLister) *BlockTypesChecker {
	return &BlockTypesChecker{registry: registry}
}

// Name returns "block_types".
func (c *BlockTypesChecker) Name() string { return "block_types" }

// Check counts registered block types.
func (c *BlockTypesChecker) Check(context.Context) Result {
	n := len(c.registry.Names())
	details := map[string]any{"registered": n}
	if n == 0 {
		return Degraded("no block types registered").WithDetails(details)
	}
	return Healthy(strconv.Itoa(n) + " block types registered").WithDetails(details)
}

var (
	_ Checker = (*DatabaseChecker)(nil)
	_ Checker = (*CacheChecker)(nil)
	_ Checker = (*BlockTypesChecker)(nil)
)
