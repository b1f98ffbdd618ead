package cache

import (
	"container/list"
	"sync"
	"time"
)

// MemoryCache is the in-memory tier: a map of encoded values bounded by entry
// count (LRU eviction) and by age (TTL since insertion).
//
// Insertion times come from time.Now, so age is computed from the monotonic
// clock reading and is not affected by wall clock adjustments.
type MemoryCache struct {
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	// LRU implementation
	items    map[string]*list.Element
	eviction *list.List

	mu sync.Mutex

	stats CacheStats
}

// memoryCacheEntry represents an entry in the memory cache
type memoryCacheEntry struct {
	key      string
	value    []byte
	inserted time.Time
}

// NewMemoryCache creates a memory cache. A zero ttl or maxEntries means
// unbounded.
func NewMemoryCache(ttl time.Duration, maxEntries int) *MemoryCache {
	return &MemoryCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
		items:      make(map[string]*list.Element),
		eviction:   list.New(),
		stats: CacheStats{
			MaxEntries: maxEntries,
			TTL:        ttl,
		},
	}
}

// Get retrieves a value. An expired entry is removed and reported as a miss.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}

	entry := elem.Value.(*memoryCacheEntry)
	if c.expired(entry, c.now()) {
		c.removeElement(elem)
		c.stats.Expirations++
		c.stats.Misses++
		return nil, false
	}

	// Move to front (most recently used)
	c.eviction.MoveToFront(elem)

	c.stats.Hits++
	return entry.value, true
}

// Put stores a value, resetting its TTL. When the cache is full, expired
// entries are dropped first and then least recently used ones.
func (c *MemoryCache) Put(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	if elem, ok := c.items[key]; ok {
		c.eviction.MoveToFront(elem)
		entry := elem.Value.(*memoryCacheEntry)
		entry.value = value
		entry.inserted = now
		return
	}

	if c.maxEntries > 0 && len(c.items) >= c.maxEntries {
		c.pruneLocked(now)
		for len(c.items) >= c.maxEntries && c.eviction.Len() > 0 {
			c.evictOldest()
		}
	}

	entry := &memoryCacheEntry{
		key:      key,
		value:    value,
		inserted: now,
	}
	c.items[key] = c.eviction.PushFront(entry)
}

// Delete removes an entry from the cache.
func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// Clear removes all entries from the cache.
func (c *MemoryCache) Clear() {
	c.ClearFunc(nil)
}

// ClearFunc calls fn for every key held by the cache and then removes all
// entries. The lock is held for the whole call, fn included, so no other
// operation observes a partially cleared cache.
func (c *MemoryCache) ClearFunc(fn func(key string)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if fn != nil {
		for elem := c.eviction.Front(); elem != nil; elem = elem.Next() {
			fn(elem.Value.(*memoryCacheEntry).key)
		}
	}

	c.items = make(map[string]*list.Element)
	c.eviction.Init()
}

// Keys returns a snapshot of the keys, most recently used first. Expired
// entries that have not been dropped yet are included.
func (c *MemoryCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.items))
	for elem := c.eviction.Front(); elem != nil; elem = elem.Next() {
		keys = append(keys, elem.Value.(*memoryCacheEntry).key)
	}
	return keys
}

// Contains reports whether an unexpired entry exists, without updating LRU order.
func (c *MemoryCache) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	return ok && !c.expired(elem.Value.(*memoryCacheEntry), c.now())
}

// Len returns the number of entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}

// Prune removes expired entries and returns how many were removed.
func (c *MemoryCache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.pruneLocked(c.now())
}

// Stats returns cache statistics.
func (c *MemoryCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.ItemCount = int64(len(c.items))

	if stats.Hits+stats.Misses > 0 {
		stats.HitRate = float64(stats.Hits) / float64(stats.Hits+stats.Misses)
	}

	return stats
}

func (c *MemoryCache) expired(entry *memoryCacheEntry, now time.Time) bool {
	return c.ttl > 0 && now.Sub(entry.inserted) >= c.ttl
}

// pruneLocked must be called with lock held.
func (c *MemoryCache) pruneLocked(now time.Time) int {
	if c.ttl <= 0 {
		return 0
	}

	pruned := 0
	elem := c.eviction.Back()
	for elem != nil {
		prev := elem.Prev()
		if c.expired(elem.Value.(*memoryCacheEntry), now) {
			c.removeElement(elem)
			c.stats.Expirations++
			pruned++
		}
		elem = prev
	}
	return pruned
}

// evictOldest removes the least recently used item (must be called with lock held).
func (c *MemoryCache) evictOldest() {
	elem := c.eviction.Back()
	if elem != nil {
		c.removeElement(elem)
		c.stats.Evictions++
	}
}

// removeElement removes an element from the cache (must be called with lock held).
func (c *MemoryCache) removeElement(elem *list.Element) {
	c.eviction.Remove(elem)
	delete(c.items, elem.Value.(*memoryCacheEntry).key)
}
