// Package cache provides the object cache behind query results and
// per-object lookups.
//
// Backends implement the byte-level Cache interface (MemoryCache here,
// badgercache for a Badger-backed store). ObjectCache layers group+key
// addressing, CBOR value encoding, group flushes and per-group
// last_changed incrementors on top of any backend. Loader collapses
// concurrent misses for the same key with singleflight.
package cache
