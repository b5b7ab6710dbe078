package cache

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

type cachedQuery struct {
	IDs       []int64
	FoundRows int64
}

func TestObjectCache_GetSetDelete(t *testing.T) {
	oc := NewObjectCache(nil, DefaultPolicy())
	ctx := context.Background()

	var got cachedQuery
	ok, err := oc.Get(ctx, "post-queries", "k", &got)
	if err != nil || ok {
		t.Fatalf("Get on empty cache = (%v, %v), want miss", ok, err)
	}

	want := cachedQuery{IDs: []int64{3, 1, 2}, FoundRows: 10}
	if err := oc.Set(ctx, "post-queries", "k", want, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	ok, err = oc.Get(ctx, "post-queries", "k", &got)
	if err != nil || !ok {
		t.Fatalf("Get after Set = (%v, %v), want hit", ok, err)
	}
	if got.FoundRows != 10 || len(got.IDs) != 3 || got.IDs[0] != 3 {
		t.Errorf("Get returned %+v, want %+v", got, want)
	}

	if err := oc.Delete(ctx, "post-queries", "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	ok, _ = oc.Get(ctx, "post-queries", "k", &got)
	if ok {
		t.Error("Get after Delete should miss")
	}
}

func TestObjectCache_GroupsAreIsolated(t *testing.T) {
	oc := NewObjectCache(nil, DefaultPolicy())
	ctx := context.Background()

	_ = oc.Set(ctx, "posts", "1", "post", 0)
	_ = oc.Set(ctx, "terms", "1", "term", 0)

	var v string
	if ok, _ := oc.Get(ctx, "posts", "1", &v); !ok || v != "post" {
		t.Errorf("posts/1 = %q, %v", v, ok)
	}
	if ok, _ := oc.Get(ctx, "terms", "1", &v); !ok || v != "term" {
		t.Errorf("terms/1 = %q, %v", v, ok)
	}
}

func TestObjectCache_Multiple(t *testing.T) {
	oc := NewObjectCache(nil, DefaultPolicy())
	ctx := context.Background()

	err := oc.SetMultiple(ctx, "post_meta", map[string]any{
		"1": map[string][]string{"color": {"red"}},
		"2": map[string][]string{"color": {"blue"}},
	}, 0)
	if err != nil {
		t.Fatalf("SetMultiple failed: %v", err)
	}

	got, err := GetMultiple[map[string][]string](ctx, oc, "post_meta", []string{"1", "2", "3"})
	if err != nil {
		t.Fatalf("GetMultiple failed: %v", err)
	}
	if len(got) != 2 || got["2"]["color"][0] != "blue" {
		t.Errorf("GetMultiple = %v", got)
	}

	if err := oc.DeleteMultiple(ctx, "post_meta", []string{"1", "2"}); err != nil {
		t.Fatalf("DeleteMultiple failed: %v", err)
	}
	got, _ = GetMultiple[map[string][]string](ctx, oc, "post_meta", []string{"1", "2"})
	if len(got) != 0 {
		t.Errorf("GetMultiple after DeleteMultiple = %v, want empty", got)
	}
}

func TestObjectCache_FlushGroup(t *testing.T) {
	oc := NewObjectCache(nil, DefaultPolicy())
	ctx := context.Background()

	_ = oc.Set(ctx, "posts", "1", "a", 0)
	_ = oc.Set(ctx, "terms", "1", "b", 0)
	before, _ := oc.LastChanged(ctx, "posts")

	if err := oc.FlushGroup(ctx, "posts"); err != nil {
		t.Fatalf("FlushGroup failed: %v", err)
	}

	var v string
	if ok, _ := oc.Get(ctx, "posts", "1", &v); ok {
		t.Error("posts/1 should be flushed")
	}
	if ok, _ := oc.Get(ctx, "terms", "1", &v); !ok {
		t.Error("terms/1 should survive a posts flush")
	}
	after, _ := oc.LastChanged(ctx, "posts")
	if after == before {
		t.Error("last_changed should be reinitialized by a flush")
	}
}

func TestObjectCache_LastChanged(t *testing.T) {
	oc := NewObjectCache(nil, DefaultPolicy())
	ctx := context.Background()

	first, err := oc.LastChanged(ctx, "posts")
	if err != nil {
		t.Fatalf("LastChanged failed: %v", err)
	}
	again, _ := oc.LastChanged(ctx, "posts")
	if first != again {
		t.Errorf("LastChanged should be stable: %q != %q", first, again)
	}

	prev := first
	for i := 0; i < 5; i++ {
		next, err := oc.BumpLastChanged(ctx, "posts")
		if err != nil {
			t.Fatalf("BumpLastChanged failed: %v", err)
		}
		p, _ := strconv.ParseInt(prev, 10, 64)
		n, _ := strconv.ParseInt(next, 10, 64)
		if n <= p {
			t.Fatalf("bump %d: %s is not after %s", i, next, prev)
		}
		prev = next
	}
	if cur, _ := oc.LastChanged(ctx, "posts"); cur != prev {
		t.Errorf("LastChanged = %q, want latest bump %q", cur, prev)
	}
}

func TestObjectCache_Remember(t *testing.T) {
	oc := NewObjectCache(nil, DefaultPolicy())
	ctx := context.Background()
	calls := 0
	fn := func(ctx context.Context) (any, error) {
		calls++
		return cachedQuery{IDs: []int64{7}, FoundRows: 1}, nil
	}

	var got cachedQuery
	hit, err := oc.Remember(ctx, "post-queries", "q", 0, &got, fn)
	if err != nil || hit {
		t.Fatalf("first Remember = (%v, %v)", hit, err)
	}
	if got.IDs[0] != 7 {
		t.Errorf("got %+v", got)
	}

	got = cachedQuery{}
	hit, err = oc.Remember(ctx, "post-queries", "q", 0, &got, fn)
	if err != nil || !hit {
		t.Fatalf("second Remember = (%v, %v)", hit, err)
	}
	if calls != 1 || got.FoundRows != 1 {
		t.Errorf("calls = %d, got %+v", calls, got)
	}

	boom := errors.New("boom")
	_, err = oc.Remember(ctx, "post-queries", "other", 0, &got, func(context.Context) (any, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Errorf("Remember error = %v, want boom", err)
	}
}

func TestObjectCache_InvalidAddresses(t *testing.T) {
	oc := NewObjectCache(nil, DefaultPolicy())
	ctx := context.Background()

	for _, group := range []string{"", "a:b", "with space"} {
		if err := oc.Set(ctx, group, "k", 1, 0); !errors.Is(err, ErrInvalidGroup) {
			t.Errorf("Set(group=%q) error = %v, want ErrInvalidGroup", group, err)
		}
	}
	if err := oc.Set(ctx, "posts", "", 1, 0); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Set(key=\"\") error = %v, want ErrInvalidKey", err)
	}
}

func TestObjectCache_LongKeysAreHashed(t *testing.T) {
	oc := NewObjectCache(nil, DefaultPolicy())
	ctx := context.Background()
	long := strings.Repeat("k", MaxKeyLength*2)

	if err := oc.Set(ctx, "post-queries", long, "v", 0); err != nil {
		t.Fatalf("Set with long key failed: %v", err)
	}
	var v string
	if ok, _ := oc.Get(ctx, "post-queries", long, &v); !ok || v != "v" {
		t.Errorf("Get with long key = %q, %v", v, ok)
	}
}

func TestObjectCache_CorruptEntryIsDropped(t *testing.T) {
	mem := NewMemoryCache(DefaultPolicy())
	oc := NewObjectCache(mem, DefaultPolicy())
	ctx := context.Background()

	_ = oc.Set(ctx, "posts", "1", "ok", 0)
	sk, _ := oc.storageKey(ctx, "posts", "1")
	_ = mem.Set(ctx, sk, []byte{0xff, 0xff}, time.Minute)

	var v string
	if _, err := oc.Get(ctx, "posts", "1", &v); err == nil {
		t.Fatal("expected decode error")
	}
	if _, ok := mem.Get(ctx, sk); ok {
		t.Error("corrupt entry should be deleted")
	}
}

func TestObjectCache_ConcurrentBumps(t *testing.T) {
	oc := NewObjectCache(nil, DefaultPolicy())
	ctx := context.Background()

	const n = 50
	seen := make(map[string]bool, n)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := oc.BumpLastChanged(ctx, "posts")
			if err != nil {
				t.Errorf("BumpLastChanged failed: %v", err)
				return
			}
			mu.Lock()
			seen[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(seen) != n {
		t.Errorf("got %d distinct values, want %d", len(seen), n)
	}
}
