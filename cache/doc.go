// Package cache provides the TTL store shared by the read endpoints, plus the
// key serialization and read-through helpers built on top of it.
//
// # Overview
//
//   - Store: TTL key/value contract with substring invalidation
//   - LRU: the default in-process Store with an optional capacity bound
//   - Remember: typed read-through that caches msgpack snapshots
//   - KeySerializer: builds stable keys from a method name and arguments
//   - Instrumented: decorator reporting hits and misses to an Observer
//
// # Basic Usage
//
//	store, err := cache.NewStore(cache.DefaultConfig())
//	key := cache.Key(cache.RegionPatients, "list", params)
//	page, err := cache.Remember(ctx, store, key, cache.ListTTL, func(ctx context.Context) (Page, error) {
//		return fetchPage(ctx, params)
//	})
//
// After a mutation, drop every cached query for the affected collection:
//
//	store.Invalidate(cache.RegionPatients)
//
// # Expiry
//
// Entries are checked lazily on Get. An entry is stale once
// now - storedAt >= ttl and is removed on that read. There is no background
// sweeper for the LRU backend; the capacity bound keeps memory in check.
// Tests inject a ManualClock through Config.Clock to move time explicitly.
//
// # Key Serialization Strategy
//
// The default key serializer uses reflection to handle various Go types:
//
//   - Function pointers: Uses %p formatting for stability within a process
//   - Basic types: Direct string representation
//   - Slices/arrays: Recursive serialization of elements
//   - Maps: Sorted key-value pairs for deterministic output
//   - Structs: Exported fields with name:value pairs
//   - Complex types: JSON fallback with error handling
//
// Function pointers are stable only within a single process lifetime, and
// closures created at different call sites serialize differently. Params
// structs with plain fields make the best keys.
//
// # See Also
//
// The sturdyc-backed Store lives in internal/cacheinfra and is selected with
// Config.Backend. For the cached admin repository, see the repositorycache package.
package cache
