package health

import "errors"

var (
	// ErrCheckTimeout indicates a health check did not finish in time.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckerNotFound indicates a checker was not found.
	ErrCheckerNotFound = errors.New("health: checker not found")

	// ErrRoundTrip indicates a value written to the cache did not read back.
	ErrRoundTrip = errors.New("health: cache round trip mismatch")
)
