// Package resilience guards calls into the content store and the HTTP
// surface.
//
// Retry re-runs an operation with exponential backoff; the query layer
// uses it for transient "database is locked" errors. CircuitBreaker stops
// calling a store that keeps failing. Bulkhead caps how many renders run
// at once, Timeout bounds each one, and RateLimiter throttles API clients
// through Middleware. Executor chains them in a fixed order.
package resilience
