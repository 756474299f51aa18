package service

import "cnb-rates/internal/entity"

// MemoryCache holds resolved rates keyed by entity.CacheKey. Rates for today
// are always accepted; older rates only while the cache holds fewer than
// maxOlder entries.
type MemoryCache struct {
	entries  map[string]entity.CacheEntry
	maxOlder int
}

func NewMemoryCache(maxOlder int) *MemoryCache {
	return &MemoryCache{
		entries:  make(map[string]entity.CacheEntry),
		maxOlder: maxOlder,
	}
}

func (c *MemoryCache) Get(key string) (entity.CacheEntry, bool) {
	e, ok := c.entries[key]
	return e, ok
}

// Put reports whether the entry was stored.
func (c *MemoryCache) Put(key string, e entity.CacheEntry, today bool) bool {
	if !today && len(c.entries) >= c.maxOlder {
		return false
	}
	c.entries[key] = e
	return true
}

func (c *MemoryCache) Len() int { return len(c.entries) }

func (c *MemoryCache) Reset() {
	c.entries = make(map[string]entity.CacheEntry)
}
