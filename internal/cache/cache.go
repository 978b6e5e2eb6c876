package cache

import (
	"runtime"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/elastic/go-freelru"

	"github.com/alexhholmes/blinktree/internal/base"
)

// Cache is a sharded LRU keyed by node identifier. It never owns values: the
// caller keeps the authoritative copy and uses the cache to skip a contended
// lookup.
type Cache[V any] struct {
	lru *freelru.ShardedLRU[base.NodeID, V]

	// Stats
	hits   atomic.Uint64
	misses atomic.Uint64
}

// entriesPerShard keeps every shard big enough to be useful.
const entriesPerShard = 4

// NewCache creates a cache holding at least maxSize entries.
func NewCache[V any](maxSize int) (*Cache[V], error) {
	shards := runtime.GOMAXPROCS(0) * 16
	maxSize = max(maxSize, shards*entriesPerShard)

	lru, err := freelru.NewSharded[base.NodeID, V](uint32(maxSize), hashNodeID)
	if err != nil {
		return nil, err
	}
	return &Cache[V]{lru: lru}, nil
}

func hashNodeID(id base.NodeID) uint32 {
	return uint32(xxhash.Sum64String(string(id)))
}

// Get returns the cached value for id.
func (c *Cache[V]) Get(id base.NodeID) (V, bool) {
	v, ok := c.lru.Get(id)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Put adds or replaces the value for id, evicting the least recently used
// entry of its shard when full.
func (c *Cache[V]) Put(id base.NodeID, v V) {
	c.lru.Add(id, v)
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	return c.lru.Len()
}

// Stats returns hit and miss counts.
func (c *Cache[V]) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
