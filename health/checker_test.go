package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/blockpress/cache"
)

type fakePinger struct {
	err   error
	delay time.Duration
}

func (p fakePinger) Ping(context.Context) error {
	time.Sleep(p.delay)
	return p.err
}

type fakeLister []string

func (l fakeLister) Names() []string { return l }

func TestStatus(t *testing.T) {
	tests := []struct {
		s    Status
		name string
		code int
	}{
		{StatusHealthy, "healthy", 200},
		{StatusDegraded, "degraded", 200},
		{StatusUnhealthy, "unhealthy", 503},
		{Status(9), "unknown", 200},
	}
	for _, tt := range tests {
		if tt.s.String() != tt.name || tt.s.HTTPStatus() != tt.code {
			t.Errorf("%d: got %q/%d", tt.s, tt.s.String(), tt.s.HTTPStatus())
		}
	}
}

func TestDatabaseChecker(t *testing.T) {
	ctx := context.Background()
	down := errors.New("database is locked")

	if res := NewDatabaseChecker(fakePinger{}).Check(ctx); res.Status != StatusHealthy {
		t.Errorf("healthy ping: %v", res.Status)
	}
	res := NewDatabaseChecker(fakePinger{err: down}).Check(ctx)
	if res.Status != StatusUnhealthy || !errors.Is(res.Error, down) {
		t.Errorf("failing ping: %+v", res)
	}

	slow := NewDatabaseChecker(fakePinger{delay: 5 * time.Millisecond})
	slow.Slow = time.Millisecond
	if res := slow.Check(ctx); res.Status != StatusDegraded {
		t.Errorf("slow ping: %v", res.Status)
	}
}

func TestCacheChecker(t *testing.T) {
	oc := cache.NewObjectCache(nil, cache.DefaultPolicy())
	res := NewCacheChecker(oc).Check(context.Background())
	if res.Status != StatusHealthy {
		t.Fatalf("Check() = %+v", res)
	}
	var leftover string
	if ok, _ := oc.Get(context.Background(), CacheGroup, "probe", &leftover); ok {
		t.Error("probe key should be deleted")
	}
}

func TestCacheChecker_NoCache(t *testing.T) {
	oc := cache.NewObjectCache(nil, cache.NoCachePolicy())
	if res := NewCacheChecker(oc).Check(context.Background()); res.Status != StatusDegraded {
		t.Errorf("Check() = %v, want degraded", res.Status)
	}
}

func TestBlockTypesChecker(t *testing.T) {
	ctx := context.Background()
	if res := NewBlockTypesChecker(fakeLister{}).Check(ctx); res.Status != StatusDegraded {
		t.Errorf("empty registry: %v", res.Status)
	}
	res := NewBlockTypesChecker(fakeLister{"core/paragraph", "core/heading"}).Check(ctx)
	if res.Status != StatusHealthy || res.Details["registered"] != 2 {
		t.Errorf("populated registry: %+v", res)
	}
}
