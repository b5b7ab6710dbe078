package resilience

import (
	"context"
	"time"
)

// Executor chains resilience guards. Outermost first: rate limiter,
// bulkhead, circuit breaker, retry, timeout per attempt.
type Executor struct {
	rateLimiter    *RateLimiter
	bulkhead       *Bulkhead
	circuitBreaker *CircuitBreaker
	retry          *Retry
	timeout        *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates an executor; with no options it calls op directly.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithRateLimiter adds a rate limiter.
func WithRateLimiter(rl *RateLimiter) ExecutorOption {
	return func(e *Executor) { e.rateLimiter = rl }
}

// WithBulkhead adds a concurrency cap.
func WithBulkhead(b *Bulkhead) ExecutorOption {
	return func(e *Executor) { e.bulkhead = b }
}

// WithCircuitBreaker adds a circuit breaker.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) { e.circuitBreaker = cb }
}

// WithRetry adds retries.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) { e.retry = r }
}

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = NewTimeout(d) }
}

// CircuitBreaker returns the configured breaker, or nil.
func (e *Executor) CircuitBreaker() *CircuitBreaker { return e.circuitBreaker }

// Execute runs op through the configured guards.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	type guard interface {
		Execute(context.Context, func(context.Context) error) error
	}
	// Innermost first.
	var chain []guard
	if e.timeout != nil {
		chain = append(chain, e.timeout)
	}
	if e.retry != nil {
		chain = append(chain, e.retry)
	}
	if e.circuitBreaker != nil {
		chain = append(chain, e.circuitBreaker)
	}
	if e.bulkhead != nil {
		chain = append(chain, e.bulkhead)
	}
	if e.rateLimiter != nil {
		chain = append(chain, e.rateLimiter)
	}

	run := op
	for _, g := range chain {
		inner := run
		run = func(ctx context.Context) error { return g.Execute(ctx, inner) }
	}
	return run(ctx)
}
