package thumbnail

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	DefaultTTL       = time.Hour
	DefaultCacheSize = 1024
)

type entry struct {
	value     string
	fetchedAt time.Time
}

// Cache maps page URLs to resolved image URLs for a bounded time.
//
// Entries are replaced whole, so readers never observe a partial value.
// A stale entry is evicted on the read that finds it.
type Cache struct {
	lru *lru.Cache[string, entry]
	ttl time.Duration
	now func() time.Time
}

// NewCache creates a cache holding at most size entries for ttl each.
func NewCache(size int, ttl time.Duration) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	l, err := lru.New[string, entry](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l, ttl: ttl, now: time.Now}, nil
}

// Get returns the cached value for url and whether it was fresh.
func (c *Cache) Get(url string) (string, bool) {
	e, ok := c.lru.Get(url)
	if !ok {
		return "", false
	}
	if c.stale(e) {
		c.lru.Remove(url)
		return "", false
	}
	return e.value, true
}

// Set stores value for url, empty values included.
func (c *Cache) Set(url, value string) {
	c.lru.Add(url, entry{value: value, fetchedAt: c.now()})
}

// Len returns the number of entries, stale ones included.
func (c *Cache) Len() int { return c.lru.Len() }

// Sweep evicts every stale entry and returns how many were removed.
func (c *Cache) Sweep() int {
	removed := 0
	for _, key := range c.lru.Keys() {
		if e, ok := c.lru.Peek(key); ok && c.stale(e) {
			c.lru.Remove(key)
			removed++
		}
	}
	return removed
}

// TTL returns the freshness window.
func (c *Cache) TTL() time.Duration { return c.ttl }

func (c *Cache) stale(e entry) bool {
	return c.now().Sub(e.fetchedAt) >= c.ttl
}
