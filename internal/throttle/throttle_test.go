package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixedClock(at *time.Time) func() time.Time {
	return func() time.Time { return *at }
}

func TestMemoryStoreWindow(t *testing.T) {
	now := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.Clock = fixedClock(&now)

	policy := Policy{Window: time.Minute, MaxRequests: 10, KeyStrategy: KeyIP}

	for i := 1; i <= 10; i++ {
		d, err := store.Allow(context.Background(), "chat:ip:ip1", policy)
		require.NoError(t, err)
		require.True(t, d.Allowed, "request %d should be admitted", i)
		require.Equal(t, 10-i, d.Remaining)
	}

	d, err := store.Allow(context.Background(), "chat:ip:ip1", policy)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, time.Minute, d.RetryAfter)

	// One past the window boundary the count resets to 1.
	now = now.Add(time.Minute + time.Millisecond)
	d, err = store.Allow(context.Background(), "chat:ip:ip1", policy)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, 9, d.Remaining)
}

func TestMemoryStoreOncePerHourGuard(t *testing.T) {
	now := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.Clock = fixedClock(&now)

	policy := Policy{Window: time.Hour, MaxRequests: 1, KeyStrategy: KeySession}

	d, err := store.Allow(context.Background(), "visit:session:session1", policy)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	now = now.Add(time.Second)
	d, err = store.Allow(context.Background(), "visit:session:session1", policy)
	require.NoError(t, err)
	require.False(t, d.Allowed)

	// A different session is unaffected.
	d, err = store.Allow(context.Background(), "visit:session:session2", policy)
	require.NoError(t, err)
	require.True(t, d.Allowed)
}

func TestMemoryStoreKeyIsolation(t *testing.T) {
	now := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.Clock = fixedClock(&now)

	policy := Policy{Window: time.Minute, MaxRequests: 1}

	d, err := store.Allow(context.Background(), "notify:ip:a", policy)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	d, err = store.Allow(context.Background(), "notify:ip:a", policy)
	require.NoError(t, err)
	require.False(t, d.Allowed)

	d, err = store.Allow(context.Background(), "notify:ip:b", policy)
	require.NoError(t, err)
	require.True(t, d.Allowed, "key a must not affect key b")
}

func TestMemoryStoreWindowResetNotStale(t *testing.T) {
	now := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.Clock = fixedClock(&now)

	policy := Policy{Window: time.Minute, MaxRequests: 2}

	for i := 0; i < 2; i++ {
		d, err := store.Allow(context.Background(), "k", policy)
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}

	// Expire the window repeatedly; each new window admits a fresh quota.
	for round := 0; round < 3; round++ {
		now = now.Add(policy.Window + time.Second)
		d, err := store.Allow(context.Background(), "k", policy)
		require.NoError(t, err)
		require.True(t, d.Allowed)
		require.Equal(t, 1, d.Remaining)
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	now := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.Clock = fixedClock(&now)

	policy := Policy{Window: time.Minute, MaxRequests: 5}
	for _, key := range []string{"a", "b", "c"} {
		_, err := store.Allow(context.Background(), key, policy)
		require.NoError(t, err)
	}
	require.Equal(t, 3, store.Len())

	require.Equal(t, 0, store.Sweep(time.Minute))

	now = now.Add(2 * time.Minute)
	require.Equal(t, 3, store.Sweep(time.Minute))
	require.Equal(t, 0, store.Len())
}

func TestThrottlePolicies(t *testing.T) {
	now := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.Clock = fixedClock(&now)

	th := New(store, map[string]Policy{
		"visit": {Window: time.Hour, MaxRequests: 1, KeyStrategy: KeyIPOrSession},
	})

	// Unconfigured endpoints are never throttled.
	d, err := th.Allow(context.Background(), "chat", "1.2.3.4", "")
	require.NoError(t, err)
	require.True(t, d.Allowed)

	d, err = th.Allow(context.Background(), "visit", "1.2.3.4", "s1")
	require.NoError(t, err)
	require.True(t, d.Allowed)

	// Same IP with a fresh session still trips the IP bucket.
	d, err = th.Allow(context.Background(), "visit", "1.2.3.4", "s2")
	require.NoError(t, err)
	require.False(t, d.Allowed)

	// Same session from a new IP trips the session bucket.
	d, err = th.Allow(context.Background(), "visit", "5.6.7.8", "s1")
	require.NoError(t, err)
	require.False(t, d.Allowed)

	// The 5.6.7.8 IP slot was counted before the session bucket denied, so
	// a fresh IP and session pair is needed here.
	d, err = th.Allow(context.Background(), "visit", "9.9.9.9", "s3")
	require.NoError(t, err)
	require.True(t, d.Allowed)
}

func TestThrottleRemainingReportsTightestBucket(t *testing.T) {
	now := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.Clock = fixedClock(&now)

	th := New(store, map[string]Policy{
		"visit": {Window: time.Hour, MaxRequests: 2, KeyStrategy: KeyIPOrSession},
	})

	d, err := th.Allow(context.Background(), "visit", "1.2.3.4", "s1")
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, 1, d.Remaining)

	// Second session from the same IP drains the IP bucket to zero while
	// its own session bucket still has quota; the IP bucket wins.
	d, err = th.Allow(context.Background(), "visit", "1.2.3.4", "s2")
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, 0, d.Remaining)
}

type failingStore struct{}

func (failingStore) Allow(context.Context, string, Policy) (Decision, error) {
	return Decision{}, context.DeadlineExceeded
}

func TestThrottleFailsOpenOnStoreError(t *testing.T) {
	th := New(failingStore{}, map[string]Policy{
		"chat": {Window: time.Minute, MaxRequests: 1},
	})

	d, err := th.Allow(context.Background(), "chat", "1.2.3.4", "")
	require.Error(t, err)
	require.True(t, d.Allowed)
}

func TestPolicyValidate(t *testing.T) {
	require.NoError(t, Policy{Window: time.Minute, MaxRequests: 1}.Validate())
	require.Error(t, Policy{Window: 0, MaxRequests: 1}.Validate())
	require.Error(t, Policy{Window: time.Minute, MaxRequests: 0}.Validate())
	require.Error(t, Policy{Window: time.Minute, MaxRequests: 1, KeyStrategy: "mac"}.Validate())
}

func TestPolicyKeys(t *testing.T) {
	p := Policy{KeyStrategy: KeyIPOrSession}
	require.Equal(t, []string{"ip:1.2.3.4", "session:s1"}, p.Keys("1.2.3.4", "s1"))

	p.KeyStrategy = KeySession
	require.Equal(t, []string{"session:unknown"}, p.Keys("1.2.3.4", " "))

	p.KeyStrategy = ""
	require.Equal(t, []string{"ip:unknown"}, p.Keys("", "s1"))
}
