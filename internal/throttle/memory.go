package throttle

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	count       int
	windowStart time.Time
}

// MemoryStore keeps window counters in a mutex-guarded map. Entries are
// created lazily and reset in place when their window has elapsed; Sweep
// drops expired entries so idle keys do not accumulate for the life of the
// process.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry

	// Clock is overridable for tests.
	Clock func() time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]entry)}
}

// Allow evaluates one key against a policy window and records the request
// when admitted.
func (m *MemoryStore) Allow(_ context.Context, key string, policy Policy) (Decision, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || now.Sub(e.windowStart) > policy.Window {
		e = entry{count: 0, windowStart: now}
	}
	if e.count >= policy.MaxRequests {
		retry := e.windowStart.Add(policy.Window).Sub(now)
		if retry < 0 {
			retry = 0
		}
		return Decision{Allowed: false, RetryAfter: retry}, nil
	}

	e.count++
	m.entries[key] = e
	return Decision{Allowed: true, Remaining: policy.MaxRequests - e.count}, nil
}

// Sweep removes entries whose window ended before maxAge ago and returns how
// many were dropped. Callers typically run it on a ticker with the longest
// configured window as maxAge.
func (m *MemoryStore) Sweep(maxAge time.Duration) int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, e := range m.entries {
		if now.Sub(e.windowStart) > maxAge {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of live entries.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryStore) now() time.Time {
	if m.Clock != nil {
		return m.Clock()
	}
	return time.Now()
}
