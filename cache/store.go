package cache

import (
	"context"
	"strings"
	"time"
)

// KeySerializer builds a cache key from a method name + arbitrary args.
// It is responsible for producing stable keys across calls.
type KeySerializer interface {
	SerializeKey(method string, args ...any) string
}

// FetchFn is the function signature Remember expects when fetching from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// Store is the TTL cache every read path shares. Each entry carries the TTL it
// was written with, so different regions can live in the same store.
//
// A miss is silent: expired entries report ok=false and are dropped on that read.
type Store interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	Delete(key string)
	// Invalidate removes every key containing pattern and returns how many were removed.
	Invalidate(pattern string) int
	Clear()
	Len() int
}

// Region TTLs used by the read endpoints.
const (
	ListTTL           = 5 * time.Minute
	DetailTTL         = 5 * time.Minute
	SummaryTTL        = 10 * time.Minute
	SpecializationTTL = 30 * time.Minute
)

// Region names double as invalidation patterns.
const (
	RegionPatients   = "patients"
	RegionTherapists = "therapists"
	RegionSessions   = "sessions"
	RegionAdmins     = "admins"
)

// RegionOf returns the region a key belongs to: everything before the first
// '.' or KeySeparator.
func RegionOf(key string) string {
	end := len(key)
	if i := strings.Index(key, "."); i >= 0 && i < end {
		end = i
	}
	if i := strings.Index(key, KeySeparator); i >= 0 && i < end {
		end = i
	}
	return key[:end]
}
