// file: internal/cache/cache.go
// version: 2.0.0
// guid: a1b2c3d4-e5f6-7a8b-9c0d-1e2f3a4b5c6d

// Package cache provides a small in-memory TTL cache used to keep remote
// lookup results around for the duration of a scan.
package cache

import (
	"sync"
	"time"
)

// sweepEvery bounds how many writes happen between full expiry sweeps.
const sweepEvery = 256

type entry[T any] struct {
	value   T
	expires time.Time
}

// Cache maps string keys to values of type T with a fixed time-to-live.
// All methods are safe for concurrent use. Expired entries are invisible
// to Get immediately and reclaimed by a periodic sweep on Set.
type Cache[T any] struct {
	mu     sync.Mutex
	ttl    time.Duration
	items  map[string]entry[T]
	writes int
}

// New creates an empty cache whose entries live for ttl after insertion.
func New[T any](ttl time.Duration) *Cache[T] {
	return &Cache[T]{
		ttl:   ttl,
		items: make(map[string]entry[T]),
	}
}

// Get returns the live value for key, if any.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		var zero T
		return zero, false
	}
	if time.Now().After(e.expires) {
		delete(c.items, key)
		var zero T
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, replacing any previous entry and resetting
// its time-to-live.
func (c *Cache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry[T]{value: value, expires: time.Now().Add(c.ttl)}
	c.writes++
	if c.writes%sweepEvery == 0 {
		c.sweepLocked()
	}
}

// Len reports the number of live entries.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	n := 0
	for _, e := range c.items {
		if !now.After(e.expires) {
			n++
		}
	}
	return n
}

func (c *Cache[T]) sweepLocked() {
	now := time.Now()
	for key, e := range c.items {
		if now.After(e.expires) {
			delete(c.items, key)
		}
	}
}
