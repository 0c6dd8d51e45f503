package cache

import (
	"context"
	"time"
)

// StoreType identifies one of the independently configured cache stores.
type StoreType string

const (
	StoreResponses  StoreType = "responses"
	StoreSearches   StoreType = "searches"
	StoreEmbeddings StoreType = "embeddings"
)

// Policy bounds a single store. Both fields must be positive.
type Policy struct {
	TTL     time.Duration `json:"ttl_seconds"`
	MaxSize int           `json:"max_size"`
}

// Entry is the read-only view handed to invalidation predicates.
type Entry struct {
	Key            string    `json:"key"`
	ScopeID        string    `json:"scope_id"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	AccessCount    int64     `json:"access_count"`
}

type CacheStats struct {
	Hits        int64             `json:"hits"`
	Misses      int64             `json:"misses"`
	Saves       int64             `json:"saves"`
	Evictions   int64             `json:"evictions"`
	HitRate     string            `json:"hit_rate"`
	SizePerType map[StoreType]int `json:"size_per_type"`
	TotalSize   int               `json:"total_size"`
	HumanSize   string            `json:"human_size"`
}

type ICacheUsecase interface {
	// Get returns the value for key if present and unexpired. Expired entries
	// are never returned, even before the sweep removes them.
	Get(store StoreType, key string) (any, bool)
	// Set inserts or overwrites, evicting the least recently used entry first
	// when the store is full. Overwriting refreshes the entry's lifetime.
	Set(store StoreType, key, scopeID string, value any)
	// InvalidateByPredicate removes every entry the predicate matches and
	// returns the count removed.
	InvalidateByPredicate(store StoreType, predicate func(Entry) bool) int
	// InvalidateScope removes every entry stored under scopeID across all
	// stores and returns the count removed.
	InvalidateScope(scopeID string) int
	// Clear drops the given stores, or every store when none is given, and
	// returns the count removed.
	Clear(stores ...StoreType) int
	Stats() CacheStats
	Policies() map[StoreType]Policy
	UpdatePolicy(store StoreType, policy Policy) error
	// StartBackgroundSweep removes expired entries on a timer until ctx is
	// cancelled.
	StartBackgroundSweep(ctx context.Context)
}
