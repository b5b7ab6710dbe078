package cache

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// BenchmarkMemoryCache_Get_Hit measures cache hit performance.
func BenchmarkMemoryCache_Get_Hit(b *testing.B) {
	policy := DefaultPolicy()
	c := NewMemoryCache(policy)
	ctx := context.Background()

	// Pre-populate
	_ = c.Set(ctx, "key", []byte("value"), time.Hour)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Get(ctx, "key")
	}
}

// BenchmarkMemoryCache_Get_Miss measures cache miss performance.
func BenchmarkMemoryCache_Get_Miss(b *testing.B) {
	policy := DefaultPolicy()
	c := NewMemoryCache(policy)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Get(ctx, "missing")
	}
}

// BenchmarkMemoryCache_Set measures write performance.
func BenchmarkMemoryCache_Set(b *testing.B) {
	policy := DefaultPolicy()
	c := NewMemoryCache(policy)
	ctx := context.Background()
	value := []byte("test value")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Set(ctx, fmt.Sprintf("key-%d", i), value, time.Hour)
	}
}

// BenchmarkMemoryCache_Set_SameKey measures overwrite performance.
func BenchmarkMemoryCache_Set_SameKey(b *testing.B) {
	policy := DefaultPolicy()
	c := NewMemoryCache(policy)
	ctx := context.Background()
	value := []byte("test value")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Set(ctx, "same-key", value, time.Hour)
	}
}

// BenchmarkMemoryCache_Delete measures delete performance.
func BenchmarkMemoryCache_Delete(b *testing.B) {
	policy := DefaultPolicy()
	c := NewMemoryCache(policy)
	ctx := context.Background()

	// Pre-populate
	for i := 0; i < b.N; i++ {
		_ = c.Set(ctx, fmt.Sprintf("key-%d", i), []byte("value"), time.Hour)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Delete(ctx, fmt.Sprintf("key-%d", i))
	}
}

// BenchmarkMemoryCache_Concurrent_ReadWrite measures mixed concurrent operations.
func BenchmarkMemoryCache_Concurrent_ReadWrite(b *testing.B) {
	policy := DefaultPolicy()
	c := NewMemoryCache(policy)
	ctx := context.Background()

	// Pre-populate some entries
	for i := 0; i < 100; i++ {
		_ = c.Set(ctx, fmt.Sprintf("key-%d", i), []byte("value"), time.Hour)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			key := fmt.Sprintf("key-%d", i%100)
			if i%4 == 0 {
				// 25% writes
				_ = c.Set(ctx, key, []byte("new-value"), time.Hour)
			} else {
				// 75% reads
				_, _ = c.Get(ctx, key)
			}
			i++
		}
	})
}

// BenchmarkMemoryCache_Concurrent_ReadHeavy measures read-heavy workload.
func BenchmarkMemoryCache_Concurrent_ReadHeavy(b *testing.B) {
	policy := DefaultPolicy()
	c := NewMemoryCache(policy)
	ctx := context.Background()

	// Pre-populate
	for i := 0; i < 100; i++ {
		_ = c.Set(ctx, fmt.Sprintf("key-%d", i), []byte("value"), time.Hour)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_, _ = c.Get(ctx, fmt.Sprintf("key-%d", i%100))
			i++
		}
	})
}

// BenchmarkHash measures query cache key hashing.
func BenchmarkHash(b *testing.B) {
	input := map[string]any{
		"vars": map[string]any{
			"post_type":      []any{"post"},
			"post_status":    []any{"publish"},
			"posts_per_page": 10,
			"tax_query": map[string]any{
				"taxonomy": "category",
				"field":    "slug",
				"terms":    "news",
			},
		},
		"sql":  "SELECT ID FROM posts WHERE post_type = ? ORDER BY post_date DESC LIMIT 0, 10",
		"args": []any{"post"},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Hash(input)
	}
}

// BenchmarkPolicy_EffectiveTTL measures TTL calculation.
func BenchmarkPolicy_EffectiveTTL(b *testing.B) {
	policy := DefaultPolicy()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = policy.EffectiveTTL(10 * time.Minute)
	}
}

// BenchmarkValidateKey measures key validation.
func BenchmarkValidateKey(b *testing.B) {
	key := "wp_query:abc123def456:1700000000000000000"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ValidateKey(key)
	}
}

// BenchmarkLoader_Load_Hit measures the loader with a cache hit.
func BenchmarkLoader_Load_Hit(b *testing.B) {
	policy := DefaultPolicy()
	loader := NewLoader(NewMemoryCache(policy), policy, nil)
	ctx := context.Background()
	fn := func(ctx context.Context) ([]byte, error) { return []byte("result"), nil }

	_, _, _ = loader.Load(ctx, "key", 0, fn)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = loader.Load(ctx, "key", 0, fn)
	}
}

// BenchmarkLoader_Load_Miss measures the loader with a cache miss.
func BenchmarkLoader_Load_Miss(b *testing.B) {
	policy := DefaultPolicy()
	loader := NewLoader(NewMemoryCache(policy), policy, nil)
	ctx := context.Background()
	fn := func(ctx context.Context) ([]byte, error) { return []byte("result"), nil }

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = loader.Load(ctx, fmt.Sprintf("key-%d", i), 0, fn)
	}
}

// BenchmarkObjectCache_GetSet measures a CBOR round trip through groups.
func BenchmarkObjectCache_GetSet(b *testing.B) {
	oc := NewObjectCache(nil, DefaultPolicy())
	ctx := context.Background()
	value := []int64{1, 2, 3, 4, 5}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = oc.Set(ctx, "post-queries", "key", value, 0)
		var got []int64
		_, _ = oc.Get(ctx, "post-queries", "key", &got)
	}
}
