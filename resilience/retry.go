package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryConfig configures Retry.
type RetryConfig struct {
	// MaxAttempts counts the first call. Default: 3.
	MaxAttempts int

	// InitialDelay is the first backoff. Default: 100ms.
	InitialDelay time.Duration

	// MaxDelay caps a single backoff. Default: 5s.
	MaxDelay time.Duration

	// Multiplier grows the backoff per attempt. Default: 2.
	Multiplier float64

	// Jitter randomizes each backoff by up to 25%.
	Jitter bool

	// RetryIf reports whether err is transient. Default: every error.
	RetryIf func(err error) bool

	// OnRetry runs before each wait.
	OnRetry func(err error, delay time.Duration)
}

// Retry runs operations with exponential backoff.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a Retry with defaults applied.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 5 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2
	}
	if config.RetryIf == nil {
		config.RetryIf = func(err error) bool { return err != nil }
	}
	return &Retry{config: config}
}

// Config returns the effective configuration.
func (r *Retry) Config() RetryConfig { return r.config }

func (r *Retry) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.config.InitialDelay
	b.MaxInterval = r.config.MaxDelay
	b.Multiplier = r.config.Multiplier
	b.RandomizationFactor = 0
	if r.config.Jitter {
		b.RandomizationFactor = 0.25
	}
	return b
}

// Execute calls op until it succeeds, returns an error RetryIf rejects,
// MaxAttempts is reached or ctx ends. The last error is returned.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	opts := []backoff.RetryOption{
		backoff.WithBackOff(r.backOff()),
		backoff.WithMaxTries(uint(r.config.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
	}
	if r.config.OnRetry != nil {
		opts = append(opts, backoff.WithNotify(r.config.OnRetry))
	}
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := op(ctx)
		if err != nil && !r.config.RetryIf(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, opts...)
	return err
}
