package roles

import (
	"slices"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/upb/role-authority/internal/auth"
)

// cacheEntry is one subject's cached role set
type cacheEntry struct {
	roles      auth.RoleSet
	insertedAt time.Time
}

func (e cacheEntry) isExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.insertedAt) > ttl
}

// RoleCache is an in-memory LRU cache with TTL for stored role sets.
// Safe for concurrent use.
type RoleCache struct {
	mu      sync.Mutex
	lru     *simplelru.LRU[string, cacheEntry]
	maxSize int
	ttl     time.Duration
	hits    uint64
	misses  uint64
	// epoch advances on every Invalidate and Clear
	epoch uint64
	now   func() time.Time
}

// CacheStats represents cache statistics
type CacheStats struct {
	Size    int     `json:"size"`
	MaxSize int     `json:"max_size"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// NewRoleCache creates a RoleCache holding at most maxSize subjects for ttl each
func NewRoleCache(maxSize int, ttl time.Duration) *RoleCache {
	if maxSize < 1 {
		maxSize = 1
	}
	// only fails for a non-positive size
	cache, _ := simplelru.NewLRU[string, cacheEntry](maxSize, nil)
	return &RoleCache{
		lru:     cache,
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns a copy of the cached roles for subject.
// The boolean is false on a miss or an expired entry.
func (c *RoleCache) Get(subject string) (auth.RoleSet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.lru.Get(subject)
	if !exists || entry.isExpired(c.now(), c.ttl) {
		c.misses++
		if exists {
			c.lru.Remove(subject)
		}
		return nil, false
	}

	c.hits++
	return slices.Clone(entry.roles), true
}

// Set stores roles for subject, evicting the least recently used entry when full
func (c *RoleCache) Set(subject string, roles auth.RoleSet) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.set(subject, roles)
}

// Epoch returns the invalidation epoch. Take it before reading the store
// and pass it to SetIfUnchanged.
func (c *RoleCache) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.epoch
}

// SetIfUnchanged stores roles only if no invalidation happened since epoch
// was taken, so a read that raced a write cannot cache the old role set.
func (c *RoleCache) SetIfUnchanged(subject string, roles auth.RoleSet, epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != epoch {
		return false
	}
	c.set(subject, roles)
	return true
}

// set must be called with the lock held
func (c *RoleCache) set(subject string, roles auth.RoleSet) {
	stored := slices.Clone(roles)
	if stored == nil {
		stored = auth.RoleSet{}
	}
	c.lru.Add(subject, cacheEntry{roles: stored, insertedAt: c.now()})
}

// Invalidate removes the entry for subject
func (c *RoleCache) Invalidate(subject string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	c.lru.Remove(subject)
}

// Clear removes all entries from the cache
func (c *RoleCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	c.lru.Purge()
}

// Stats returns cache statistics
func (c *RoleCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{
		Size:    c.lru.Len(),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

// CleanupExpired removes all expired entries and reports how many were dropped
func (c *RoleCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for _, subject := range c.lru.Keys() {
		// Peek leaves recency untouched
		if entry, ok := c.lru.Peek(subject); ok && entry.isExpired(now, c.ttl) {
			c.lru.Remove(subject)
			removed++
		}
	}
	return removed
}

// StartCleanupWorker periodically drops expired entries until stopCh is closed
func (c *RoleCache) StartCleanupWorker(interval time.Duration, stopCh <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.CleanupExpired()
		case <-stopCh:
			return
		}
	}
}
