package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is a circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures a CircuitBreaker.
type CircuitBreakerConfig struct {
	// MaxFailures consecutive failures open the circuit. Default: 5.
	MaxFailures int

	// ResetTimeout is how long the circuit stays open before a probe
	// call is let through. Default: 30s.
	ResetTimeout time.Duration

	// IsFailure classifies errors. Default: any error except context
	// cancellation.
	IsFailure func(err error) bool

	OnStateChange func(from, to State)
}

// CircuitBreaker fails fast after repeated failures.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// NewCircuitBreaker returns a closed breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool {
			return err != nil && !errors.Is(err, context.Canceled)
		}
	}
	return &CircuitBreaker{config: config}
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.tickLocked()
	return cb.state
}

// Execute runs op unless the circuit is open.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	cb.mu.Lock()
	cb.tickLocked()
	switch {
	case cb.state == StateOpen:
		cb.mu.Unlock()
		return ErrCircuitOpen
	case cb.state == StateHalfOpen && cb.probing:
		cb.mu.Unlock()
		return ErrCircuitOpen
	case cb.state == StateHalfOpen:
		cb.probing = true
	}
	cb.mu.Unlock()

	err := op(ctx)

	cb.mu.Lock()
	defer cb.mu.Unlock()
	failed := cb.config.IsFailure(err)
	switch cb.state {
	case StateHalfOpen:
		cb.probing = false
		if failed {
			cb.openLocked()
		} else {
			cb.failures = 0
			cb.transitionLocked(StateClosed)
		}
	case StateClosed:
		if !failed {
			cb.failures = 0
			break
		}
		cb.failures++
		if cb.failures >= cb.config.MaxFailures {
			cb.openLocked()
		}
	}
	return err
}

// Reset closes the circuit.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.probing = false
	cb.transitionLocked(StateClosed)
}

func (cb *CircuitBreaker) openLocked() {
	cb.openedAt = time.Now()
	cb.transitionLocked(StateOpen)
}

func (cb *CircuitBreaker) tickLocked() {
	if cb.state == StateOpen && time.Since(cb.openedAt) >= cb.config.ResetTimeout {
		cb.transitionLocked(StateHalfOpen)
	}
}

func (cb *CircuitBreaker) transitionLocked(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, to)
	}
}
