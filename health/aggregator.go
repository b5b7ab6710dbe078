package health

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/blockpress/observe"
)

// DefaultTimeout bounds a full CheckAll run.
const DefaultTimeout = 5 * time.Second

// Aggregator runs a named set of checkers.
type Aggregator struct {
	timeout time.Duration
	logger  observe.Logger

	mu       sync.RWMutex
	checkers map[string]Checker
	order    []string
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithTimeout sets the deadline applied to every run.
func WithTimeout(d time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithLogger logs checks that are not healthy.
func WithLogger(l observe.Logger) AggregatorOption {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAggregator creates a new health aggregator.
func NewAggregator(opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		timeout:  DefaultTimeout,
		logger:   observe.NoopLogger(),
		checkers: make(map[string]Checker),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Register adds or replaces a checker.
func (a *Aggregator) Register(name string, checker Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.checkers[name]; !exists {
		a.order = append(a.order, name)
	}
	a.checkers[name] = checker
}

// Unregister removes a checker.
func (a *Aggregator) Unregister(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.checkers, name)
	if i := slices.Index(a.order, name); i >= 0 {
		a.order = slices.Delete(a.order, i, i+1)
	}
}

// CheckerNames returns the registered names in registration order.
func (a *Aggregator) CheckerNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.order)
}

// Check runs a single named check.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	checker, ok := a.checkers[name]
	a.mu.RUnlock()
	if !ok {
		return Result{}, ErrCheckerNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.run(ctx, name, checker), nil
}

// CheckAll runs every check concurrently and returns the results by name.
func (a *Aggregator) CheckAll(ctx context.Context) map[string]Result {
	a.mu.RLock()
	names := slices.Clone(a.order)
	checkers := make([]Checker, len(names))
	for i, n := range names {
		checkers[i] = a.checkers[n]
	}
	a.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	results := make([]Result, len(names))
	var g errgroup.Group
	for i := range names {
		g.Go(func() error {
			results[i] = a.run(ctx, names[i], checkers[i])
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]Result, len(names))
	for i, n := range names {
		out[n] = results[i]
	}
	return out
}

// OverallStatus folds results: any unhealthy wins, then any degraded.
func OverallStatus(results map[string]Result) Status {
	overall := StatusHealthy
	for _, r := range results {
		if r.Status > overall {
			overall = r.Status
		}
	}
	return overall
}

func (a *Aggregator) run(ctx context.Context, name string, checker Checker) Result {
	start := time.Now()
	done := make(chan Result, 1)
	go func() { done <- checker.Check(ctx) }()

	var res Result
	select {
	case res = <-done:
	case <-ctx.Done():
		res = Unhealthy("check timed out", ErrCheckTimeout)
	}
	res.Duration = time.Since(start)
	if res.Timestamp.IsZero() {
		res.Timestamp = start
	}

	if res.Status != StatusHealthy {
		fields := []observe.Field{
			{Key: "check", Value: name},
			{Key: "status", Value: res.Status.String()},
			{Key: "message", Value: res.Message},
		}
		if res.Error != nil {
			fields = append(fields, observe.Field{Key: "error", Value: res.Error.Error()})
		}
		a.logger.Warn(ctx, "health check not healthy", fields...)
	}
	return res
}
