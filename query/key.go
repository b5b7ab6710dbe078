package query

import (
	"fmt"

	"github.com/jonwraymond/blockpress/cache"
	"github.com/jonwraymond/blockpress/store"
)

// Cache key prefixes.
const (
	PostsKeyPrefix = "wp_query"
	TermsKeyPrefix = "get_terms"
)

// GenerateCacheKey returns "prefix:hash:lastChanged", where hash is the
// SHA-256 of the canonical JSON of vars and the request. The store's
// placeholder escape is removed from the SQL and string arguments first,
// so keys are stable across processes.
func GenerateCacheKey(prefix string, vars map[string]any, req store.Request, lastChanged string) (string, error) {
	args := make([]any, len(req.Args))
	for i, a := range req.Args {
		if s, ok := a.(string); ok {
			a = store.RemovePlaceholderEscape(s)
		}
		args[i] = a
	}
	sum, err := cache.Hash(map[string]any{
		"vars": vars,
		"sql":  store.RemovePlaceholderEscape(req.SQL),
		"args": args,
	})
	if err != nil {
		return "", fmt.Errorf("query: cache key: %w", err)
	}
	return prefix + ":" + sum + ":" + lastChanged, nil
}
