package resilience

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig configures a token bucket.
type RateLimiterConfig struct {
	// Rate is tokens per second. Default: 100.
	Rate float64

	// Burst is the bucket size. Default: 10.
	Burst int

	// MaxWait bounds Wait when WaitOnLimit is set. Default: 1s.
	MaxWait     time.Duration
	WaitOnLimit bool
}

func (c *RateLimiterConfig) applyDefaults() {
	if c.Rate <= 0 {
		c.Rate = 100
	}
	if c.Burst <= 0 {
		c.Burst = 10
	}
	if c.MaxWait <= 0 {
		c.MaxWait = time.Second
	}
}

// RateLimiter is a token bucket.
type RateLimiter struct {
	config  RateLimiterConfig
	limiter *rate.Limiter
}

// NewRateLimiter creates a full bucket.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	config.applyDefaults()
	return &RateLimiter{
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(config.Rate), config.Burst),
	}
}

// Allow takes a token if one is available.
func (rl *RateLimiter) Allow() bool { return rl.limiter.Allow() }

// Wait blocks for a token for at most MaxWait.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	wctx, cancel := context.WithTimeout(ctx, rl.config.MaxWait)
	defer cancel()
	if err := rl.limiter.Wait(wctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrRateLimitExceeded
	}
	return nil
}

// Execute runs op if a token is available, waiting when configured to.
func (rl *RateLimiter) Execute(ctx context.Context, op func(context.Context) error) error {
	if rl.config.WaitOnLimit {
		if err := rl.Wait(ctx); err != nil {
			return err
		}
	} else if !rl.Allow() {
		return ErrRateLimitExceeded
	}
	return op(ctx)
}

// RetryAfter estimates how long until a token is available.
func (rl *RateLimiter) RetryAfter() time.Duration {
	r := rl.limiter.Reserve()
	defer r.Cancel()
	return r.Delay()
}

// KeyedRateLimiter keeps one bucket per client key. Buckets idle for
// longer than Idle are dropped.
type KeyedRateLimiter struct {
	config RateLimiterConfig
	Idle   time.Duration

	mu      sync.Mutex
	buckets map[string]*keyedBucket
	swept   time.Time
}

type keyedBucket struct {
	rl   *RateLimiter
	seen time.Time
}

// NewKeyedRateLimiter returns a per-key limiter.
func NewKeyedRateLimiter(config RateLimiterConfig) *KeyedRateLimiter {
	config.applyDefaults()
	return &KeyedRateLimiter{
		config:  config,
		Idle:    10 * time.Minute,
		buckets: make(map[string]*keyedBucket),
		swept:   time.Now(),
	}
}

// Limiter returns the bucket for key.
func (k *KeyedRateLimiter) Limiter(key string) *RateLimiter {
	now := time.Now()
	k.mu.Lock()
	defer k.mu.Unlock()
	if now.Sub(k.swept) > k.Idle {
		for key, b := range k.buckets {
			if now.Sub(b.seen) > k.Idle {
				delete(k.buckets, key)
			}
		}
		k.swept = now
	}
	b, ok := k.buckets[key]
	if !ok {
		b = &keyedBucket{rl: NewRateLimiter(k.config)}
		k.buckets[key] = b
	}
	b.seen = now
	return b.rl
}

// Len returns the number of live buckets.
func (k *KeyedRateLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.buckets)
}

// KeyFunc picks the rate limit key of a request.
type KeyFunc func(r *http.Request) string

// ClientIP keys requests by remote address without the port.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware answers 429 with a Retry-After header once a client's bucket
// is empty. A nil key func uses ClientIP.
func Middleware(k *KeyedRateLimiter, key KeyFunc) func(http.Handler) http.Handler {
	if key == nil {
		key = ClientIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rl := k.Limiter(key(r))
			if !rl.Allow() {
				secs := int(math.Ceil(rl.RetryAfter().Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
				http.Error(w, ErrRateLimitExceeded.Error(), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
