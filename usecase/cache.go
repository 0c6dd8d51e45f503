package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	domainCache "github.com/AzielCF/az-shield/domains/cache"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

type cacheEntry struct {
	value          any
	scopeID        string
	createdAt      time.Time
	expiresAt      time.Time
	lastAccessedAt time.Time
	accessCount    int64
}

// cacheStore is one bounded TTL store. Every operation on it runs under its
// own mutex so interleaved callers cannot break the size invariant.
type cacheStore struct {
	mu      sync.Mutex
	policy  domainCache.Policy
	entries map[string]*cacheEntry
}

type cacheService struct {
	stores map[domainCache.StoreType]*cacheStore

	hits      int64
	misses    int64
	saves     int64
	evictions int64

	sweepInterval time.Duration
	now           func() time.Time
}

// NewCacheService builds one store per policy. Invalid policies are rejected
// here so capacity errors can never surface at runtime.
func NewCacheService(policies map[domainCache.StoreType]domainCache.Policy, sweepInterval time.Duration) (domainCache.ICacheUsecase, error) {
	if len(policies) == 0 {
		return nil, fmt.Errorf("cache: at least one store policy is required")
	}
	if sweepInterval <= 0 {
		return nil, fmt.Errorf("cache: sweep interval must be positive, got %v", sweepInterval)
	}

	stores := make(map[domainCache.StoreType]*cacheStore, len(policies))
	for storeType, policy := range policies {
		if err := validatePolicy(storeType, policy); err != nil {
			return nil, err
		}
		stores[storeType] = &cacheStore{
			policy:  policy,
			entries: make(map[string]*cacheEntry),
		}
	}

	return &cacheService{
		stores:        stores,
		sweepInterval: sweepInterval,
		now:           time.Now,
	}, nil
}

func validatePolicy(storeType domainCache.StoreType, policy domainCache.Policy) error {
	if policy.MaxSize <= 0 {
		return fmt.Errorf("cache: store %s: max size must be positive, got %d", storeType, policy.MaxSize)
	}
	if policy.TTL <= 0 {
		return fmt.Errorf("cache: store %s: ttl must be positive, got %v", storeType, policy.TTL)
	}
	return nil
}

func (s *cacheService) store(storeType domainCache.StoreType) *cacheStore {
	st, ok := s.stores[storeType]
	if !ok {
		panic(fmt.Sprintf("cache: unknown store type %q", storeType))
	}
	return st
}

func (s *cacheService) Get(storeType domainCache.StoreType, key string) (any, bool) {
	st := s.store(storeType)
	now := s.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	entry, ok := st.entries[key]
	if !ok {
		atomic.AddInt64(&s.misses, 1)
		return nil, false
	}
	// Check-on-read: a logically expired entry is a miss even if the sweep
	// has not run yet.
	if !now.Before(entry.expiresAt) {
		delete(st.entries, key)
		atomic.AddInt64(&s.misses, 1)
		return nil, false
	}

	entry.lastAccessedAt = now
	entry.accessCount++
	atomic.AddInt64(&s.hits, 1)
	return entry.value, true
}

func (s *cacheService) Set(storeType domainCache.StoreType, key, scopeID string, value any) {
	st := s.store(storeType)
	now := s.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	// Overwrite is a fresh write, not a merge: lifetime and recency restart.
	if entry, ok := st.entries[key]; ok {
		entry.value = value
		entry.scopeID = scopeID
		entry.createdAt = now
		entry.expiresAt = now.Add(st.policy.TTL)
		entry.lastAccessedAt = now
		entry.accessCount = 0
		atomic.AddInt64(&s.saves, 1)
		return
	}

	if len(st.entries) >= st.policy.MaxSize {
		s.evictLRULocked(storeType, st)
	}

	st.entries[key] = &cacheEntry{
		value:          value,
		scopeID:        scopeID,
		createdAt:      now,
		expiresAt:      now.Add(st.policy.TTL),
		lastAccessedAt: now,
	}
	atomic.AddInt64(&s.saves, 1)
}

// evictLRULocked removes the entry with the oldest lastAccessedAt, breaking
// ties by oldest createdAt. Caller holds st.mu.
func (s *cacheService) evictLRULocked(storeType domainCache.StoreType, st *cacheStore) {
	var victimKey string
	var victim *cacheEntry
	for key, entry := range st.entries {
		if victim == nil {
			victimKey, victim = key, entry
			continue
		}
		if entry.lastAccessedAt.Before(victim.lastAccessedAt) ||
			(entry.lastAccessedAt.Equal(victim.lastAccessedAt) && entry.createdAt.Before(victim.createdAt)) {
			victimKey, victim = key, entry
		}
	}
	if victim == nil {
		return
	}

	delete(st.entries, victimKey)
	atomic.AddInt64(&s.evictions, 1)
	logrus.Debugf("[CACHE] Evicted LRU entry %s from %s store", victimKey, storeType)
}

func (s *cacheService) InvalidateByPredicate(storeType domainCache.StoreType, predicate func(domainCache.Entry) bool) int {
	st := s.store(storeType)

	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for key, entry := range st.entries {
		view := domainCache.Entry{
			Key:            key,
			ScopeID:        entry.scopeID,
			CreatedAt:      entry.createdAt,
			ExpiresAt:      entry.expiresAt,
			LastAccessedAt: entry.lastAccessedAt,
			AccessCount:    entry.accessCount,
		}
		if predicate(view) {
			delete(st.entries, key)
			removed++
		}
	}
	return removed
}

func (s *cacheService) InvalidateScope(scopeID string) int {
	removed := 0
	for storeType := range s.stores {
		removed += s.InvalidateByPredicate(storeType, func(e domainCache.Entry) bool {
			return e.ScopeID == scopeID
		})
	}
	if removed > 0 {
		logrus.Infof("[CACHE] Invalidated %d entries for scope %s", removed, scopeID)
	}
	return removed
}

func (s *cacheService) Clear(storeTypes ...domainCache.StoreType) int {
	if len(storeTypes) == 0 {
		for storeType := range s.stores {
			storeTypes = append(storeTypes, storeType)
		}
	}

	removed := 0
	for _, storeType := range storeTypes {
		st := s.store(storeType)
		st.mu.Lock()
		removed += len(st.entries)
		st.entries = make(map[string]*cacheEntry)
		st.mu.Unlock()
	}

	logrus.Infof("[CACHE] Cleared %d entries", removed)
	return removed
}

func (s *cacheService) Stats() domainCache.CacheStats {
	hits := atomic.LoadInt64(&s.hits)
	misses := atomic.LoadInt64(&s.misses)

	hitRate := "0%"
	if lookups := hits + misses; lookups > 0 {
		hitRate = fmt.Sprintf("%.2f%%", float64(hits)/float64(lookups)*100)
	}

	sizePerType := make(map[domainCache.StoreType]int, len(s.stores))
	total := 0
	for storeType, st := range s.stores {
		st.mu.Lock()
		sizePerType[storeType] = len(st.entries)
		total += len(st.entries)
		st.mu.Unlock()
	}

	return domainCache.CacheStats{
		Hits:        hits,
		Misses:      misses,
		Saves:       atomic.LoadInt64(&s.saves),
		Evictions:   atomic.LoadInt64(&s.evictions),
		HitRate:     hitRate,
		SizePerType: sizePerType,
		TotalSize:   total,
		HumanSize:   humanize.Comma(int64(total)) + " entries",
	}
}

func (s *cacheService) Policies() map[domainCache.StoreType]domainCache.Policy {
	policies := make(map[domainCache.StoreType]domainCache.Policy, len(s.stores))
	for storeType, st := range s.stores {
		st.mu.Lock()
		policies[storeType] = st.policy
		st.mu.Unlock()
	}
	return policies
}

func (s *cacheService) UpdatePolicy(storeType domainCache.StoreType, policy domainCache.Policy) error {
	st, ok := s.stores[storeType]
	if !ok {
		return fmt.Errorf("cache: unknown store type %q", storeType)
	}
	if err := validatePolicy(storeType, policy); err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	st.policy = policy
	// Shrinking the bound evicts immediately so the size invariant holds.
	for len(st.entries) > st.policy.MaxSize {
		s.evictLRULocked(storeType, st)
	}
	return nil
}

func (s *cacheService) StartBackgroundSweep(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := s.sweepExpired(); removed > 0 {
					logrus.Infof("[CACHE] Sweep removed %d expired entries", removed)
				}
			}
		}
	}()
}

// sweepExpired proactively drops expired entries so idle caches release
// memory without waiting for a read. One store is locked at a time.
func (s *cacheService) sweepExpired() int {
	now := s.now()
	removed := 0
	for _, st := range s.stores {
		st.mu.Lock()
		for key, entry := range st.entries {
			if !now.Before(entry.expiresAt) {
				delete(st.entries, key)
				removed++
			}
		}
		st.mu.Unlock()
	}
	return removed
}
