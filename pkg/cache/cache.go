// Package cache is a small read-through cache with explicit invalidation,
// owned by whoever constructs it rather than shared as global state.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

type Cache[V any] struct {
	mu    sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
	store map[string]entry[V]
	gens  map[string]uint64
}

// New returns a cache whose entries live for ttl. A non-positive ttl
// disables caching.
func New[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		ttl:   ttl,
		now:   time.Now,
		store: make(map[string]entry[V]),
		gens:  make(map[string]uint64),
	}
}

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.store[key]
	if !ok || !c.now().Before(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *Cache[V]) Set(key string, value V) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Generation reports how many times key has been invalidated. Read it before
// loading a value and pass it to SetIfUnchanged.
func (c *Cache[V]) Generation(key string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gens[key]
}

// SetIfUnchanged stores value only if key has not been invalidated since gen
// was read, so a load that raced a write cannot cache the old value.
func (c *Cache[V]) SetIfUnchanged(key string, gen uint64, value V) bool {
	if c.ttl <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[key] != gen {
		return false
	}
	c.store[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
	return true
}

func (c *Cache[V]) Invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.store, k)
		c.gens[k]++
	}
}
