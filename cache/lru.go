package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

type lruEntry struct {
	key      string
	value    any
	storedAt time.Time
	ttl      time.Duration
}

// LRU is an in-process TTL store with an optional capacity bound. When the
// bound is reached the least recently used entry is evicted. Expiry is only
// checked on read; there is no background sweep.
type LRU struct {
	mu         sync.Mutex
	capacity   int
	defaultTTL time.Duration
	clock      Clock
	items      map[string]*list.Element
	// order holds the most recently used entry at the front.
	order *list.List
}

// NewLRU builds an LRU store from cfg. Backend is ignored.
func NewLRU(cfg Config) *LRU {
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock()
	}
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = ListTTL
	}
	return &LRU{
		capacity:   cfg.Capacity,
		defaultTTL: ttl,
		clock:      clock,
		items:      make(map[string]*list.Element),
		order:      list.New(),
	}
}

// Get returns the value stored under key if it has not outlived its TTL.
func (c *LRU) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*lruEntry)
	if c.clock.Now().Sub(e.storedAt) >= e.ttl {
		c.removeElement(el)
		return nil, false
	}
	c.order.MoveToFront(el)
	return e.value, true
}

// Set stores value under key, replacing whatever was there.
func (c *LRU) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		e := el.Value.(*lruEntry)
		e.value = value
		e.storedAt = now
		e.ttl = ttl
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&lruEntry{key: key, value: value, storedAt: now, ttl: ttl})
	c.items[key] = el

	if c.capacity > 0 && c.order.Len() > c.capacity {
		if tail := c.order.Back(); tail != nil {
			c.removeElement(tail)
		}
	}
}

// Delete removes a single key.
func (c *LRU) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
}

// Invalidate removes every key that contains pattern. An empty pattern removes nothing.
func (c *LRU) Invalidate(pattern string) int {
	if pattern == "" {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, el := range c.items {
		if strings.Contains(key, pattern) {
			c.removeElement(el)
			removed++
		}
	}
	return removed
}

// Clear drops every entry.
func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
}

// Len reports the number of entries held, including expired ones not yet read.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *LRU) removeElement(el *list.Element) {
	e := el.Value.(*lruEntry)
	delete(c.items, e.key)
	c.order.Remove(el)
}
