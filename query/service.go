package query

import (
	"context"
	"time"

	"github.com/jonwraymond/blockpress/cache"
	"github.com/jonwraymond/blockpress/observe"
	"github.com/jonwraymond/blockpress/resilience"
	"github.com/jonwraymond/blockpress/store"
)

// Object cache groups.
const (
	GroupPosts       = "posts"
	GroupPostMeta    = "post_meta"
	GroupObjectTerms = "object_terms"
	GroupPostQueries = "post-queries"
	GroupTerms       = "terms"
	GroupTermMeta    = "term_meta"
	GroupTermQueries = "term-queries"
)

type options struct {
	types  *Types
	hooks  *Hooks
	exec   *resilience.Executor
	mw     *observe.Middleware
	logger observe.Logger
	ttl    time.Duration
}

// Option configures a query service.
type Option func(*options)

// WithTypes sets the post type and taxonomy registry.
func WithTypes(t *Types) Option {
	return func(o *options) {
		if t != nil {
			o.types = t
		}
	}
}

// WithHooks sets the clause filters.
func WithHooks(h *Hooks) Option {
	return func(o *options) {
		if h != nil {
			o.hooks = h
		}
	}
}

// WithExecutor sets the executor that database calls run through. The
// default retries busy database errors three times.
func WithExecutor(e *resilience.Executor) Option {
	return func(o *options) {
		if e != nil {
			o.exec = e
		}
	}
}

// WithMiddleware sets the telemetry middleware for query spans and cache
// lookup metrics.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(o *options) {
		if mw != nil {
			o.mw = mw
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l observe.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTTL sets the lifetime of cached query results. Zero defers to the
// cache policy.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

func buildOptions(opts []Option) options {
	o := options{
		types:  NewTypes(),
		hooks:  &Hooks{},
		mw:     observe.NoopMiddleware(),
		logger: observe.NoopLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.exec == nil {
		o.exec = DefaultExecutor()
	}
	return o
}

// DefaultExecutor retries busy database errors with exponential backoff
// and stops querying a database that keeps failing.
func DefaultExecutor() *resilience.Executor {
	return resilience.NewExecutor(
		resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			MaxFailures:  10,
			ResetTimeout: 5 * time.Second,
		})),
		resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 20 * time.Millisecond,
			MaxDelay:     500 * time.Millisecond,
			Jitter:       true,
			RetryIf:      store.IsBusy,
		})),
	)
}

// lastChanged joins the last_changed values of groups.
func lastChanged(ctx context.Context, c *cache.ObjectCache, groups ...string) (string, error) {
	var out string
	for i, g := range groups {
		v, err := c.LastChanged(ctx, g)
		if err != nil {
			return "", err
		}
		if i > 0 {
			out += ":"
		}
		out += v
	}
	return out, nil
}
