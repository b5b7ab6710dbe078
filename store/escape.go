package store

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
)

var placeholderEscape = sync.OnceValue(func() string {
	var seed [32]byte
	_, _ = rand.Read(seed[:])
	sum := sha256.Sum256(seed[:])
	return "{" + hex.EncodeToString(sum[:]) + "}"
})

// PlaceholderEscape returns this process's stand-in for a literal '%' in
// generated SQL. It differs between processes, so anything hashed for a
// cache key must pass through RemovePlaceholderEscape first.
func PlaceholderEscape() string { return placeholderEscape() }

// AddPlaceholderEscape replaces '%' in s with the escape marker.
func AddPlaceholderEscape(s string) string {
	return strings.ReplaceAll(s, "%", PlaceholderEscape())
}

// RemovePlaceholderEscape restores '%' in s.
func RemovePlaceholderEscape(s string) string {
	return strings.ReplaceAll(s, PlaceholderEscape(), "%")
}

// EscapeLike escapes the LIKE wildcards in s so it matches literally
// with ESCAPE '\'.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// PlaceholderEscape is the package function, exposed on Store for callers
// holding only a Store.
func (s *Store) PlaceholderEscape() string { return PlaceholderEscape() }

// RemovePlaceholderEscape is the package function on Store.
func (s *Store) RemovePlaceholderEscape(v string) string { return RemovePlaceholderEscape(v) }
