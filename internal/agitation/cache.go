package agitation

import (
	"container/list"
	"fmt"
	"sync"
)

// PhaseCache is a thread-safe LRU cache of resolved phases. Entries never go
// stale because the key embeds the mode fingerprint.
type PhaseCache struct {
	mu      sync.Mutex
	items   map[string]*list.Element
	lru     *list.List
	maxSize int
	hits    uint64
	misses  uint64
}

type cacheItem struct {
	key   string
	phase Phase
}

// NewPhaseCache creates a cache holding at most maxSize phases.
func NewPhaseCache(maxSize int) *PhaseCache {
	if maxSize <= 0 {
		maxSize = 1024
	}
	return &PhaseCache{
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		maxSize: maxSize,
	}
}

func cacheKey(fingerprint string, minute, totalMinutes int) string {
	return fmt.Sprintf("%s:%d:%d", fingerprint, minute, totalMinutes)
}

// Get returns the cached phase for key.
func (c *PhaseCache) Get(key string) (Phase, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.misses++
		return Phase{}, false
	}
	c.hits++
	c.lru.MoveToFront(elem)
	return elem.Value.(*cacheItem).phase, true
}

// Set stores a phase, evicting the least recently used entry when full.
func (c *PhaseCache) Set(key string, phase Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheItem).phase = phase
		return
	}

	c.items[key] = c.lru.PushFront(&cacheItem{key: key, phase: phase})
	if c.lru.Len() > c.maxSize {
		oldest := c.lru.Back()
		c.lru.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheItem).key)
	}
}

// Clear removes all entries.
func (c *PhaseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.lru = list.New()
}

// CacheStats represents cache statistics.
type CacheStats struct {
	Size    int
	MaxSize int
	Hits    uint64
	Misses  uint64
}

func (c *PhaseCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Size:    c.lru.Len(),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
	}
}
