package cache

import (
	"time"

	"github.com/Victorkib/mentacare-backend-admin/internal/cacheinfra"
)

// Backend selects the Store implementation NewStore builds.
type Backend string

const (
	BackendLRU     Backend = "lru"
	BackendSturdyc Backend = "sturdyc"
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	Backend Backend
	// Capacity bounds the number of entries. Zero disables the bound.
	Capacity int
	// DefaultTTL applies when Set is called with a non-positive TTL.
	DefaultTTL time.Duration
	// NumShards and EvictionPercentage only apply to the sturdyc backend.
	NumShards          int
	EvictionPercentage int
	// Clock only applies to the LRU backend. Nil means wall clock.
	Clock Clock
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	infra := cacheinfra.DefaultConfig()
	return Config{
		Backend:            BackendLRU,
		Capacity:           infra.Capacity,
		DefaultTTL:         infra.TTL,
		NumShards:          infra.NumShards,
		EvictionPercentage: infra.EvictionPercentage,
	}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendLRU:
		if c.Capacity < 0 {
			return &cacheinfra.ConfigError{Field: "Capacity", Message: "must not be negative"}
		}
		if c.DefaultTTL <= 0 {
			return &cacheinfra.ConfigError{Field: "DefaultTTL", Message: "must be greater than 0"}
		}
		return nil
	case BackendSturdyc:
		return c.toInternal().Validate()
	default:
		return &cacheinfra.ConfigError{Field: "Backend", Message: "must be one of lru, sturdyc"}
	}
}

// NewStore constructs the configured Store implementation.
func NewStore(cfg Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Backend == BackendSturdyc {
		return cacheinfra.NewSturdycStore(cfg.toInternal())
	}
	return NewLRU(cfg), nil
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.DefaultTTL,
		EvictionPercentage: c.EvictionPercentage,
	}
}
