package cacheinfra

import (
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/viccon/sturdyc"
)

// sturdycStore adapts sturdyc to the substring-invalidating TTL store the
// services share. sturdyc fixes the TTL per client, so one client is kept per
// distinct TTL and a key lives in exactly one of them.
type sturdycStore struct {
	cfg     Config
	clients *xsync.MapOf[time.Duration, *sturdyc.Client[any]]
}

// NewSturdycStore creates a sturdyc-backed store.
func NewSturdycStore(cfg Config) (*sturdycStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &sturdycStore{
		cfg:     cfg,
		clients: xsync.NewMapOf[time.Duration, *sturdyc.Client[any]](),
	}
	s.client(cfg.TTL)
	return s, nil
}

func (s *sturdycStore) client(ttl time.Duration) *sturdyc.Client[any] {
	c, _ := s.clients.LoadOrCompute(ttl, func() *sturdyc.Client[any] {
		return sturdyc.New[any](
			s.cfg.Capacity,
			s.cfg.NumShards,
			ttl,
			s.cfg.EvictionPercentage,
			s.cfg.ToSturdycOptions()...,
		)
	})
	return c
}

func (s *sturdycStore) each(fn func(*sturdyc.Client[any]) bool) {
	s.clients.Range(func(_ time.Duration, c *sturdyc.Client[any]) bool {
		return fn(c)
	})
}

// Get looks the key up in every TTL client.
func (s *sturdycStore) Get(key string) (any, bool) {
	var (
		value any
		found bool
	)
	s.each(func(c *sturdyc.Client[any]) bool {
		value, found = c.Get(key)
		return !found
	})
	return value, found
}

// Set stores value in the client for ttl, dropping any copy held under another TTL.
func (s *sturdycStore) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.cfg.TTL
	}
	target := s.client(ttl)
	s.each(func(c *sturdyc.Client[any]) bool {
		if c != target {
			c.Delete(key)
		}
		return true
	})
	target.Set(key, value)
}

// Delete removes a single entry.
func (s *sturdycStore) Delete(key string) {
	s.each(func(c *sturdyc.Client[any]) bool {
		c.Delete(key)
		return true
	})
}

// Invalidate removes every key containing pattern. An empty pattern removes nothing.
func (s *sturdycStore) Invalidate(pattern string) int {
	if pattern == "" {
		return 0
	}
	removed := 0
	s.each(func(c *sturdyc.Client[any]) bool {
		for _, key := range c.ScanKeys() {
			if strings.Contains(key, pattern) {
				c.Delete(key)
				removed++
			}
		}
		return true
	})
	return removed
}

// Clear removes every entry from every client.
func (s *sturdycStore) Clear() {
	s.each(func(c *sturdyc.Client[any]) bool {
		for _, key := range c.ScanKeys() {
			c.Delete(key)
		}
		return true
	})
}

// Len sums the entries held by every client.
func (s *sturdycStore) Len() int {
	n := 0
	s.each(func(c *sturdyc.Client[any]) bool {
		n += c.Size()
		return true
	})
	return n
}
