package hooks

import (
	"context"
	"sort"
	"sync"
)

// DefaultPriority is used by callers without a preference.
const DefaultPriority = 10

type entry[F any] struct {
	name     string
	priority int
	seq      uint64
	fn       F
}

// list is a priority-ordered, concurrency-safe callback list.
type list[F any] struct {
	mu      sync.RWMutex
	entries []entry[F]
	seq     uint64
}

func (l *list[F]) add(priority int, name string, fn F) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	l.entries = append(l.entries, entry[F]{name: name, priority: priority, seq: l.seq, fn: fn})
	sort.SliceStable(l.entries, func(i, j int) bool {
		if l.entries[i].priority != l.entries[j].priority {
			return l.entries[i].priority < l.entries[j].priority
		}
		return l.entries[i].seq < l.entries[j].seq
	})
}

func (l *list[F]) remove(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := false
	kept := l.entries[:0]
	for _, e := range l.entries {
		if e.name == name {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	l.entries = kept
	return removed
}

func (l *list[F]) has(name string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, e := range l.entries {
		if e.name == name {
			return true
		}
	}
	return false
}

func (l *list[F]) len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// snapshot lets callbacks add or remove hooks without deadlocking.
func (l *list[F]) snapshot() []F {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]F, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.fn
	}
	return out
}

// FilterFunc transforms a value.
type FilterFunc[T any] func(ctx context.Context, v T) T

// Filter is a named extension point whose callbacks may replace a value.
// The zero value is ready to use.
type Filter[T any] struct {
	l list[FilterFunc[T]]
}

// Add registers fn under name. Names need not be unique; Remove drops every
// callback registered under a name.
func (f *Filter[T]) Add(priority int, name string, fn FilterFunc[T]) {
	f.l.add(priority, name, fn)
}

// Remove unregisters callbacks added under name.
func (f *Filter[T]) Remove(name string) bool { return f.l.remove(name) }

// Has reports whether a callback is registered under name.
func (f *Filter[T]) Has(name string) bool { return f.l.has(name) }

// Len returns the number of registered callbacks.
func (f *Filter[T]) Len() int { return f.l.len() }

// Apply threads v through every callback and returns the final value.
func (f *Filter[T]) Apply(ctx context.Context, v T) T {
	if f == nil {
		return v
	}
	for _, fn := range f.l.snapshot() {
		v = fn(ctx, v)
	}
	return v
}

// ActionFunc observes a value.
type ActionFunc[T any] func(ctx context.Context, v T)

// Action is a named extension point whose callbacks observe an event.
// The zero value is ready to use.
type Action[T any] struct {
	l list[ActionFunc[T]]
}

// Add registers fn under name.
func (a *Action[T]) Add(priority int, name string, fn ActionFunc[T]) {
	a.l.add(priority, name, fn)
}

// Remove unregisters callbacks added under name.
func (a *Action[T]) Remove(name string) bool { return a.l.remove(name) }

// Has reports whether a callback is registered under name.
func (a *Action[T]) Has(name string) bool { return a.l.has(name) }

// Len returns the number of registered callbacks.
func (a *Action[T]) Len() int { return a.l.len() }

// Do runs every callback with v.
func (a *Action[T]) Do(ctx context.Context, v T) {
	if a == nil {
		return
	}
	for _, fn := range a.l.snapshot() {
		fn(ctx, v)
	}
}
