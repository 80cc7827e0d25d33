package rules

import (
	"sync"
	"sync/atomic"
	"time"
)

// RulesCache holds the ordered list of active rules between store mutations
type RulesCache interface {
	// Get returns the cached rules in evaluation order, nil on miss or expiry
	Get() []*Rule

	// Version returns the invalidation count. Read it before loading the
	// rules that are passed to Set.
	Version() uint64

	// Set replaces the cached rules unless the cache was invalidated after
	// version was read. Reports whether the rules were stored.
	Set(rules []*Rule, version uint64) bool

	// Invalidate drops the cached rules so the next Get misses
	Invalidate()

	// Stats returns hit/miss counters and the cached list size
	Stats() CacheStats
}

// CacheConfig holds configuration for cache behavior
type CacheConfig struct {
	// TTL is the lifetime of a cached list. Zero disables expiry, leaving
	// invalidation to rule mutations.
	TTL time.Duration
}

// DefaultCacheConfig returns the config used by NewEngine
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{TTL: 0}
}

// CacheStats is a point-in-time view of cache usage
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int   `json:"size"`
}

// InMemoryRulesCache is a mutex-guarded RulesCache
type InMemoryRulesCache struct {
	rules    []*Rule
	cachedAt time.Time
	config   CacheConfig
	valid    bool
	version  uint64
	mu       sync.RWMutex

	hits   atomic.Int64
	misses atomic.Int64
}

// NewInMemoryRulesCache creates an empty cache
func NewInMemoryRulesCache(config CacheConfig) *InMemoryRulesCache {
	return &InMemoryRulesCache{config: config}
}

// Get returns a copy of the cached rules
func (c *InMemoryRulesCache) Get() []*Rule {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.fresh() {
		c.misses.Add(1)
		return nil
	}
	c.hits.Add(1)

	out := make([]*Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Version returns the number of invalidations so far
func (c *InMemoryRulesCache) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Set stores a copy of rules loaded at version. A list loaded before the
// latest Invalidate is dropped.
func (c *InMemoryRulesCache) Set(rules []*Rule, version uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if version != c.version {
		return false
	}
	c.rules = make([]*Rule, len(rules))
	copy(c.rules, rules)
	c.cachedAt = time.Now()
	c.valid = true
	return true
}

// Invalidate clears the cache and bumps the version
func (c *InMemoryRulesCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.valid = false
	c.rules = nil
	c.version++
}

// Stats returns hit/miss counters and the cached list size
func (c *InMemoryRulesCache) Stats() CacheStats {
	c.mu.RLock()
	size := len(c.rules)
	c.mu.RUnlock()
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load(), Size: size}
}

// fresh must be called with c.mu held
func (c *InMemoryRulesCache) fresh() bool {
	if !c.valid {
		return false
	}
	if c.config.TTL > 0 && time.Since(c.cachedAt) > c.config.TTL {
		return false
	}
	return true
}
