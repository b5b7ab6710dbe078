package resilience

import "errors"

var (
	ErrCircuitOpen       = errors.New("resilience: circuit breaker is open")
	ErrRateLimitExceeded = errors.New("resilience: rate limit exceeded")
	ErrBulkheadFull      = errors.New("resilience: bulkhead at capacity")
	ErrTimeout           = errors.New("resilience: operation timed out")
)
