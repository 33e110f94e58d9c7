// Package memcache is an in-process cache.Cache with per-entry TTL and
// substring invalidation.
package memcache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type entry struct {
	data     []byte
	storedAt time.Time
	ttl      time.Duration
}

type Cache struct {
	mu      sync.Mutex
	entries map[string]entry

	// now is replaceable in tests
	now func() time.Time
}

func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data := make([]byte, len(value))
	copy(data, value)
	c.entries[key] = entry{data: data, storedAt: c.now(), ttl: ttl}

	return nil
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}

	if c.now().Sub(e.storedAt) > e.ttl {
		delete(c.entries, key)
		return nil, false, nil
	}

	return e.data, true, nil
}

func (c *Cache) InvalidatePattern(_ context.Context, substring string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if strings.Contains(key, substring) {
			delete(c.entries, key)
		}
	}

	return nil
}
