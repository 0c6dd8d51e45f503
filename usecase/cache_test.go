package usecase

import (
	"sync"
	"testing"
	"time"

	domainCache "github.com/AzielCF/az-shield/domains/cache"
)

// fakeClock lets tests move time forward without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestCacheService(t *testing.T, policies map[domainCache.StoreType]domainCache.Policy) (*cacheService, *fakeClock) {
	t.Helper()

	svc, err := NewCacheService(policies, 5*time.Minute)
	if err != nil {
		t.Fatalf("NewCacheService() unexpected error: %v", err)
	}
	cs, ok := svc.(*cacheService)
	if !ok {
		t.Fatalf("NewCacheService() did not return *cacheService, got %T", svc)
	}

	clock := newFakeClock()
	cs.now = clock.Now
	return cs, clock
}

func defaultTestPolicies() map[domainCache.StoreType]domainCache.Policy {
	return map[domainCache.StoreType]domainCache.Policy{
		domainCache.StoreResponses:  {TTL: time.Hour, MaxSize: 1000},
		domainCache.StoreSearches:   {TTL: 30 * time.Minute, MaxSize: 500},
		domainCache.StoreEmbeddings: {TTL: 24 * time.Hour, MaxSize: 5000},
	}
}

func TestNewCacheService_RejectsInvalidPolicy(t *testing.T) {
	_, err := NewCacheService(map[domainCache.StoreType]domainCache.Policy{
		domainCache.StoreResponses: {TTL: time.Hour, MaxSize: 0},
	}, 5*time.Minute)
	if err == nil {
		t.Fatalf("NewCacheService() expected error for max size 0, got nil")
	}

	_, err = NewCacheService(map[domainCache.StoreType]domainCache.Policy{
		domainCache.StoreResponses: {TTL: 0, MaxSize: 10},
	}, 5*time.Minute)
	if err == nil {
		t.Fatalf("NewCacheService() expected error for ttl 0, got nil")
	}

	_, err = NewCacheService(defaultTestPolicies(), 0)
	if err == nil {
		t.Fatalf("NewCacheService() expected error for sweep interval 0, got nil")
	}
}

func TestCacheService_TTLExpiry(t *testing.T) {
	svc, clock := newTestCacheService(t, defaultTestPolicies())

	svc.Set(domainCache.StoreResponses, "k1", "biz-1", "answer")
	if _, ok := svc.Get(domainCache.StoreResponses, "k1"); !ok {
		t.Fatalf("Get() expected hit before expiry")
	}

	// Expiry is checked on read, never by size pressure alone.
	clock.Advance(time.Hour)
	if _, ok := svc.Get(domainCache.StoreResponses, "k1"); ok {
		t.Fatalf("Get() expected miss once now >= createdAt + ttl")
	}
}

func TestCacheService_LRUEvictionScenario(t *testing.T) {
	svc, clock := newTestCacheService(t, map[domainCache.StoreType]domainCache.Policy{
		domainCache.StoreResponses: {TTL: time.Second, MaxSize: 2},
	})

	store := domainCache.StoreResponses
	svc.Set(store, "a", "biz-1", 1)
	clock.Advance(time.Millisecond)
	svc.Set(store, "b", "biz-1", 2)
	clock.Advance(time.Millisecond)

	// Reading "a" refreshes its recency, so "b" becomes the LRU victim.
	if _, ok := svc.Get(store, "a"); !ok {
		t.Fatalf("Get(a) expected hit")
	}
	clock.Advance(time.Millisecond)
	svc.Set(store, "c", "biz-1", 3)

	if _, ok := svc.Get(store, "b"); ok {
		t.Fatalf("Get(b) expected miss after LRU eviction")
	}
	if _, ok := svc.Get(store, "a"); !ok {
		t.Fatalf("Get(a) expected hit after eviction of b")
	}
	if _, ok := svc.Get(store, "c"); !ok {
		t.Fatalf("Get(c) expected hit after insert")
	}

	stats := svc.Stats()
	if stats.Evictions != 1 {
		t.Fatalf("Stats().Evictions = %d, want 1", stats.Evictions)
	}
	if stats.SizePerType[store] != 2 {
		t.Fatalf("Stats().SizePerType[%s] = %d, want 2", store, stats.SizePerType[store])
	}
}

func TestCacheService_HitRateAccounting(t *testing.T) {
	svc, _ := newTestCacheService(t, defaultTestPolicies())

	if got := svc.Stats().HitRate; got != "0%" {
		t.Fatalf("Stats().HitRate = %q before any lookup, want \"0%%\"", got)
	}

	svc.Get(domainCache.StoreResponses, "missing") // miss
	svc.Set(domainCache.StoreResponses, "k", "biz-1", "v")
	svc.Get(domainCache.StoreResponses, "k") // hit

	stats := svc.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Saves != 1 {
		t.Fatalf("Stats() = hits %d, misses %d, saves %d; want 1, 1, 1",
			stats.Hits, stats.Misses, stats.Saves)
	}
	if stats.HitRate != "50.00%" {
		t.Fatalf("Stats().HitRate = %q, want \"50.00%%\"", stats.HitRate)
	}
}

func TestCacheService_OverwriteIsFreshWrite(t *testing.T) {
	svc, clock := newTestCacheService(t, map[domainCache.StoreType]domainCache.Policy{
		domainCache.StoreResponses: {TTL: time.Minute, MaxSize: 10},
	})
	store := domainCache.StoreResponses

	svc.Set(store, "k", "biz-1", "old")
	clock.Advance(40 * time.Second)
	svc.Set(store, "k", "biz-1", "new")
	clock.Advance(40 * time.Second)

	// 80s since the first write, but the overwrite restarted the lifetime.
	value, ok := svc.Get(store, "k")
	if !ok {
		t.Fatalf("Get() expected hit, overwrite must refresh expiry")
	}
	if value != "new" {
		t.Fatalf("Get() = %v, want %q", value, "new")
	}
	if size := svc.Stats().SizePerType[store]; size != 1 {
		t.Fatalf("overwrite must not double-count size, got %d", size)
	}
}

func TestCacheService_InvalidateScope(t *testing.T) {
	svc, _ := newTestCacheService(t, defaultTestPolicies())

	svc.Set(domainCache.StoreResponses, "r1", "biz-1", "v")
	svc.Set(domainCache.StoreResponses, "r2", "biz-2", "v")
	svc.Set(domainCache.StoreSearches, "s1", "biz-1", "v")
	svc.Set(domainCache.StoreSearches, "s2", "biz-2", "v")

	if removed := svc.InvalidateScope("biz-1"); removed != 2 {
		t.Fatalf("InvalidateScope() removed %d entries, want 2", removed)
	}

	if _, ok := svc.Get(domainCache.StoreResponses, "r1"); ok {
		t.Fatalf("Get(r1) expected miss after scope invalidation")
	}
	if _, ok := svc.Get(domainCache.StoreSearches, "s1"); ok {
		t.Fatalf("Get(s1) expected miss after scope invalidation")
	}
	if _, ok := svc.Get(domainCache.StoreResponses, "r2"); !ok {
		t.Fatalf("Get(r2) expected hit, other scopes must be unaffected")
	}
	if _, ok := svc.Get(domainCache.StoreSearches, "s2"); !ok {
		t.Fatalf("Get(s2) expected hit, other scopes must be unaffected")
	}
}

func TestCacheService_InvalidateByPredicate(t *testing.T) {
	svc, _ := newTestCacheService(t, defaultTestPolicies())

	svc.Set(domainCache.StoreEmbeddings, "e1", "", []float64{0.1})
	svc.Set(domainCache.StoreEmbeddings, "e2", "", []float64{0.2})

	removed := svc.InvalidateByPredicate(domainCache.StoreEmbeddings, func(e domainCache.Entry) bool {
		return e.Key == "e1"
	})
	if removed != 1 {
		t.Fatalf("InvalidateByPredicate() removed %d, want 1", removed)
	}
	if _, ok := svc.Get(domainCache.StoreEmbeddings, "e2"); !ok {
		t.Fatalf("Get(e2) expected hit, predicate did not match it")
	}
}

func TestCacheService_ClearReturnsCount(t *testing.T) {
	svc, _ := newTestCacheService(t, defaultTestPolicies())

	svc.Set(domainCache.StoreResponses, "r1", "biz-1", "v")
	svc.Set(domainCache.StoreSearches, "s1", "biz-1", "v")
	svc.Set(domainCache.StoreEmbeddings, "e1", "", "v")

	if removed := svc.Clear(domainCache.StoreResponses); removed != 1 {
		t.Fatalf("Clear(responses) removed %d, want 1", removed)
	}
	if removed := svc.Clear(); removed != 2 {
		t.Fatalf("Clear() removed %d, want 2", removed)
	}
	if total := svc.Stats().TotalSize; total != 0 {
		t.Fatalf("Stats().TotalSize = %d after full clear, want 0", total)
	}
}

func TestCacheService_SweepRemovesExpired(t *testing.T) {
	svc, clock := newTestCacheService(t, map[domainCache.StoreType]domainCache.Policy{
		domainCache.StoreResponses: {TTL: time.Minute, MaxSize: 10},
		domainCache.StoreSearches:  {TTL: time.Hour, MaxSize: 10},
	})

	svc.Set(domainCache.StoreResponses, "short", "biz-1", "v")
	svc.Set(domainCache.StoreSearches, "long", "biz-1", "v")

	clock.Advance(2 * time.Minute)
	if removed := svc.sweepExpired(); removed != 1 {
		t.Fatalf("sweepExpired() removed %d, want 1", removed)
	}
	if _, ok := svc.Get(domainCache.StoreSearches, "long"); !ok {
		t.Fatalf("Get(long) expected hit, sweep must only drop expired entries")
	}
}

func TestCacheService_UpdatePolicyShrinksStore(t *testing.T) {
	svc, clock := newTestCacheService(t, map[domainCache.StoreType]domainCache.Policy{
		domainCache.StoreResponses: {TTL: time.Hour, MaxSize: 3},
	})
	store := domainCache.StoreResponses

	svc.Set(store, "a", "biz-1", 1)
	clock.Advance(time.Millisecond)
	svc.Set(store, "b", "biz-1", 2)
	clock.Advance(time.Millisecond)
	svc.Set(store, "c", "biz-1", 3)

	if err := svc.UpdatePolicy(store, domainCache.Policy{TTL: time.Hour, MaxSize: 1}); err != nil {
		t.Fatalf("UpdatePolicy() unexpected error: %v", err)
	}
	if size := svc.Stats().SizePerType[store]; size != 1 {
		t.Fatalf("store size = %d after shrink, want 1", size)
	}
	// The most recently written entry survives.
	if _, ok := svc.Get(store, "c"); !ok {
		t.Fatalf("Get(c) expected hit after shrink evictions")
	}

	if err := svc.UpdatePolicy(store, domainCache.Policy{TTL: time.Hour, MaxSize: 0}); err == nil {
		t.Fatalf("UpdatePolicy() expected error for max size 0, got nil")
	}
}
