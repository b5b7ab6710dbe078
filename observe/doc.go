// Package observe provides observability primitives for the block pipeline.
//
// It bundles a JSON structured logger, OpenTelemetry tracing and metrics
// for block rendering and query caching, and DoingItWrong, the structured
// channel for developer-facing notices (invalid registrations, unresolved
// directive expressions, failing render callbacks). Notices are logged at
// warn level and never panic or abort rendering.
//
// Recorder is an in-memory Logger for tests that need to assert on notices.
package observe
