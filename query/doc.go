// Package query runs post and term queries against the store and caches
// their results in the object cache.
//
// Query arguments arrive as loosely typed maps (HTTP query strings, block
// attributes) and are decoded into PostArgs or TermArgs. Normalize folds
// equivalent argument shapes into one canonical form, so that a scalar and
// a single-element list, or an empty post type and "post", build the same
// SQL and the same cache key.
//
// A cache key is the query prefix, the SHA-256 of the normalized arguments
// together with the registered types and the generated SQL, and the
// group's last_changed value. Writes never touch cached query results
// directly: the Invalidator bumps last_changed and every later key
// changes.
package query
