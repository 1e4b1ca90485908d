package jangkau

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultCacheSize is the entry bound of the built-in memory cache.
	DefaultCacheSize = 100
	// DefaultCacheTTL applies when a Set carries no positive TTL.
	DefaultCacheTTL = 5 * time.Minute
)

// MemoryCache is the built-in Cache: bounded, insertion-ordered and
// TTL-aware. At capacity the oldest entry is evicted; re-setting a key
// refreshes both its value and its position. Expired entries are dropped
// lazily on access.
type MemoryCache struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	order   *list.List // front = oldest insertion
	items   map[string]*list.Element
}

type cacheItem struct {
	key   string
	entry *CacheEntry
}

// NewMemoryCache returns a MemoryCache bounded to maxSize entries with the
// given default TTL. Non-positive arguments fall back to DefaultCacheSize
// and DefaultCacheTTL.
func NewMemoryCache(maxSize int, ttl time.Duration) *MemoryCache {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &MemoryCache{
		maxSize: maxSize,
		ttl:     ttl,
		order:   list.New(),
		items:   make(map[string]*list.Element),
	}
}

// Get returns the entry under key when present and unexpired.
func (c *MemoryCache) Get(key string) (*CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	item := el.Value.(*cacheItem)
	if time.Now().After(item.entry.ExpiresAt) {
		c.removeElement(el)
		return nil, false
	}
	return item.entry, true
}

// Set stores entry under key for ttl, using the cache default when ttl is
// non-positive. The entry's ExpiresAt is stamped here.
func (c *MemoryCache) Set(key string, entry *CacheEntry, ttl time.Duration) {
	if entry == nil {
		return
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	entry.ExpiresAt = time.Now().Add(ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*cacheItem).entry = entry
		c.order.MoveToBack(el)
		return
	}
	if c.order.Len() >= c.maxSize {
		if front := c.order.Front(); front != nil {
			c.removeElement(front)
		}
	}
	c.items[key] = c.order.PushBack(&cacheItem{key: key, entry: entry})
}

// Delete removes the entry under key, if any.
func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
}

// Clear drops every entry.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.items = make(map[string]*list.Element)
}

// ClearPattern drops every entry whose key contains pattern as a substring.
func (c *MemoryCache) ClearPattern(pattern string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var next *list.Element
	for el := c.order.Front(); el != nil; el = next {
		next = el.Next()
		if strings.Contains(el.Value.(*cacheItem).key, pattern) {
			c.removeElement(el)
		}
	}
}

// Len reports the number of stored entries, counting ones not yet lazily
// expired.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *MemoryCache) removeElement(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*cacheItem).key)
}
