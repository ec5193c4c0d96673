package cache

import "time"

// Observer receives cache events labelled by region. The metrics package
// provides the Prometheus implementation.
type Observer interface {
	Hit(region string)
	Miss(region string)
	Stored(region string)
	Invalidated(pattern string, removed int)
}

type instrumented struct {
	Store
	obs Observer
}

// Instrumented decorates store so every read, write and invalidation is
// reported to obs. A nil obs returns store unchanged.
func Instrumented(store Store, obs Observer) Store {
	if obs == nil {
		return store
	}
	return &instrumented{Store: store, obs: obs}
}

func (s *instrumented) Get(key string) (any, bool) {
	value, ok := s.Store.Get(key)
	if ok {
		s.obs.Hit(RegionOf(key))
	} else {
		s.obs.Miss(RegionOf(key))
	}
	return value, ok
}

func (s *instrumented) Set(key string, value any, ttl time.Duration) {
	s.Store.Set(key, value, ttl)
	s.obs.Stored(RegionOf(key))
}

func (s *instrumented) Invalidate(pattern string) int {
	n := s.Store.Invalidate(pattern)
	s.obs.Invalidated(pattern, n)
	return n
}

func (s *instrumented) Clear() {
	n := s.Store.Len()
	s.Store.Clear()
	s.obs.Invalidated("*", n)
}
