package resilience

import (
	"context"
	"errors"
	"time"
)

// Timeout bounds an operation. The operation keeps running in the
// background after the deadline; it must honor ctx to stop early.
type Timeout struct {
	d time.Duration
}

// NewTimeout returns a Timeout of d (30s when d is not positive).
func NewTimeout(d time.Duration) *Timeout {
	if d <= 0 {
		d = 30 * time.Second
	}
	return &Timeout{d: d}
}

// Duration returns the configured bound.
func (t *Timeout) Duration() time.Duration { return t.d }

// Execute runs op and returns ErrTimeout if it outlives the bound.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- op(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}
