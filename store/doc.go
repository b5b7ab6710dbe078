// Package store is the relational store behind posts, metadata, terms and
// comments.
//
// It runs on SQLite (modernc.org/sqlite, no cgo) through database/sql, with
// the schema managed by golang-migrate from embedded migrations. Every
// mutation fires the matching action on the hooks.Registry it was opened
// with, after the change is committed, so caches can invalidate.
//
// Queries built elsewhere arrive as a Request. LIKE patterns in a Request
// carry PlaceholderEscape in place of '%'; the store restores them right
// before execution.
package store
