package shp

import (
	"container/list"
	"sync"
)

// featureCache keeps recently materialised features with LRU eviction.
//
// Entries are keyed by shape position. Edits invalidate the affected entry;
// compaction shifts positions and clears the whole cache.
type featureCache struct {
	capacity int
	features map[int]*cacheEntry
	lru      *list.List // most recent at front
	hits     int
	misses   int
	mu       sync.Mutex
}

// cacheEntry tracks a cached feature and its place in the LRU list.
type cacheEntry struct {
	index   int
	feature *Feature
	element *list.Element
}

// newFeatureCache creates a cache holding up to capacity features. A capacity
// of zero or less disables caching.
func newFeatureCache(capacity int) *featureCache {
	return &featureCache{
		capacity: capacity,
		features: make(map[int]*cacheEntry),
		lru:      list.New(),
	}
}

// Get returns the cached feature for index or materialises it with loader.
// Loader errors are returned as is and nothing is cached.
func (c *featureCache) Get(index int, loader func() (*Feature, error)) (*Feature, error) {
	c.mu.Lock()
	if entry, ok := c.features[index]; ok {
		c.hits++
		c.lru.MoveToFront(entry.element)
		c.mu.Unlock()
		return entry.feature, nil
	}
	c.misses++
	c.mu.Unlock()

	f, err := loader()
	if err != nil {
		return nil, err
	}
	c.Add(index, f)
	return f, nil
}

// Add stores f under index, evicting the least recently used entry when full.
func (c *featureCache) Add(index int, f *Feature) {
	if c.capacity <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.features[index]; ok {
		entry.feature = f
		c.lru.MoveToFront(entry.element)
		return
	}
	for c.lru.Len() >= c.capacity {
		c.evictLRU()
	}
	entry := &cacheEntry{index: index, feature: f}
	entry.element = c.lru.PushFront(entry)
	c.features[index] = entry
}

// evictLRU removes the least recently used feature.
// Must be called with c.mu locked.
func (c *featureCache) evictLRU() {
	elem := c.lru.Back()
	if elem == nil {
		return
	}
	entry := elem.Value.(*cacheEntry)
	c.lru.Remove(elem)
	delete(c.features, entry.index)
}

// Remove drops the entry for index.
func (c *featureCache) Remove(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.features[index]; ok {
		c.lru.Remove(entry.element)
		delete(c.features, index)
	}
}

// Clear removes every entry. Hit and miss counters are kept.
func (c *featureCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.features = make(map[int]*cacheEntry)
	c.lru.Init()
}

// Stats returns cache statistics.
func (c *featureCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CacheStats{
		Features: len(c.features),
		Capacity: c.capacity,
		Hits:     c.hits,
		Misses:   c.misses,
	}
}

// CacheStats holds feature cache metrics.
type CacheStats struct {
	Features int // Number of features currently cached
	Capacity int // Maximum number of cached features
	Hits     int
	Misses   int
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
