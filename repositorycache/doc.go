// Package repositorycache provides a cached decorator for go-repository-bun
// repositories.
//
// The decorator wraps a base repository and serves reads through
// cache.Remember. Writes pass through and, when they succeed, invalidate the
// repository's namespace in the shared cache.Store:
//
//	base := store.NewAdminRepository(db)
//	admins := repositorycache.New(base, cacheStore, repositorycache.WithNamespace(cache.RegionAdmins))
//
//	admin, err := admins.GetByID(ctx, id.String()) // cached
//	_, err = admins.Update(ctx, admin)             // invalidates "admins"
//
// # Cached vs pass-through
//
// Get, GetByID, GetByIdentifier, List and Count are cached when called without
// criteria. Criteria are closures and cannot be keyed, so calls that pass any
// go straight to the base repository. All *Tx reads and Raw queries bypass the
// cache so transactions never see entries written outside them.
//
// # Keys
//
// Keys are built with cache.Key: "<namespace>.<method>" followed by the
// serialized arguments. Because the namespace is a key prefix, any component
// holding the same store can invalidate the repository with
// store.Invalidate(namespace).
//
// # Errors
//
// Errors from the base repository are returned unchanged and never cached.
package repositorycache
