package ratelimit

import (
	"sync"
	"time"
)

// Bucket mirrors the server's remaining-quota state for one route.
type Bucket struct {
	Route     string    // Exact route key (method + path)
	Limit     int       // Quota ceiling for the window
	Remaining int       // Calls left in the current window
	Reset     time.Time // Local-clock instant the window refills
}

// Exhausted reports whether the bucket has no quota left before now.
func (b Bucket) Exhausted(now time.Time) bool {
	return b.Remaining == 0 && b.Reset.After(now)
}

// Table holds one bucket per distinct route key. Buckets are created
// lazily on the first response carrying quota headers and superseded by
// every later response for the same route. A single mutex guards the
// whole table; contention is low since REST calls block on I/O, not here.
type Table struct {
	mu      sync.Mutex
	buckets map[string]*Bucket
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		buckets: make(map[string]*Bucket),
	}
}

// Lookup returns the bucket for a route, if one exists. Buckets that are
// both exhausted and already past their reset are evicted here rather
// than proactively; eviction only saves memory.
func (t *Table) Lookup(route string) (Bucket, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.buckets[route]
	if !ok {
		return Bucket{}, false
	}

	if b.Remaining == 0 && b.Reset.Before(time.Now()) {
		delete(t.buckets, route)
		return Bucket{}, false
	}

	return *b, true
}

// Record updates a route's bucket from a server response. Remaining is
// clamped to [0, limit]; resetAt must already be corrected to the local
// clock by the caller.
func (t *Table) Record(route string, limit, remaining int, resetAt time.Time) {
	if remaining < 0 {
		remaining = 0
	}
	if remaining > limit {
		remaining = limit
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.buckets[route]
	if !ok {
		t.buckets[route] = &Bucket{
			Route:     route,
			Limit:     limit,
			Remaining: remaining,
			Reset:     resetAt,
		}
		return
	}

	b.Limit = limit
	b.Remaining = remaining
	b.Reset = resetAt
}

// WaitUntil returns how long a call to the route must wait before
// transmitting. Zero unless the bucket is exhausted with a reset still in
// the future.
func (t *Table) WaitUntil(route string, now time.Time) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.buckets[route]
	if !ok {
		return 0
	}
	if b.Remaining == 0 && b.Reset.After(now) {
		return b.Reset.Sub(now)
	}
	return 0
}

// Len returns the number of tracked routes.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buckets)
}
