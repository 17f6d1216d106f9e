package api

import (
	"container/list"
	"encoding/json"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/nicktill/dimcluster/pkg/cluster"
	"github.com/nicktill/dimcluster/pkg/codec"
)

// ResultCache is an LRU cache of clustering results for inline requests
type ResultCache struct {
	capacity int
	ttl      time.Duration
	mu       sync.Mutex
	entries  map[uint64]*cacheEntry
	lru      *list.List
}

type cacheEntry struct {
	key       uint64
	result    cluster.Result
	timestamp time.Time
	element   *list.Element
}

// NewResultCache creates a cache. capacity <= 0 disables caching.
func NewResultCache(capacity int, ttl time.Duration) *ResultCache {
	return &ResultCache{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[uint64]*cacheEntry),
		lru:      list.New(),
	}
}

// Key hashes the canonical JSON form of a request. It reports false when
// caching is disabled. encoding/json sorts map keys, so equal requests hash equally.
func (c *ResultCache) Key(req codec.Request) (uint64, bool) {
	if c == nil || c.capacity <= 0 {
		return 0, false
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return 0, false
	}
	return xxhash.Sum64(raw), true
}

// Get returns a cached result
func (c *ResultCache) Get(key uint64) (cluster.Result, bool) {
	if c == nil || c.capacity <= 0 {
		return cluster.Result{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return cluster.Result{}, false
	}

	if c.ttl > 0 && time.Since(entry.timestamp) > c.ttl {
		c.removeLocked(entry)
		return cluster.Result{}, false
	}

	c.lru.MoveToFront(entry.element)
	return entry.result, true
}

// Put stores a result, evicting the least recently used entry when full
func (c *ResultCache) Put(key uint64, result cluster.Result) {
	if c == nil || c.capacity <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		entry.result = result
		entry.timestamp = time.Now()
		c.lru.MoveToFront(entry.element)
		return
	}

	entry := &cacheEntry{key: key, result: result, timestamp: time.Now()}
	entry.element = c.lru.PushFront(entry)
	c.entries[key] = entry

	if c.lru.Len() > c.capacity {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeLocked(oldest.Value.(*cacheEntry))
		}
	}
}

// Len returns the number of cached results
func (c *ResultCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *ResultCache) removeLocked(entry *cacheEntry) {
	c.lru.Remove(entry.element)
	delete(c.entries, entry.key)
}
