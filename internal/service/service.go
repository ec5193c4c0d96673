// Package service implements the admin operations on patients, therapists,
// sessions and admin accounts. Reads go through the shared cache; every
// mutation invalidates the regions whose cached pages it can change.
package service

import (
	"context"
	"io"
	"time"

	"github.com/go-logr/logr"
	"github.com/uptrace/bun"

	"github.com/Victorkib/mentacare-backend-admin/cache"
	"github.com/Victorkib/mentacare-backend-admin/internal/blob"
)

// Deps are the collaborators shared by every service.
type Deps struct {
	DB    *bun.DB
	Cache cache.Store
	Clock cache.Clock
	Log   logr.Logger
	// Blob is optional; without it multipart uploads are rejected.
	Blob blob.Storage
}

type base struct {
	db    *bun.DB
	cache cache.Store
	clock cache.Clock
	log   logr.Logger
	blob  blob.Storage
}

func newBase(d Deps, name string) base {
	clock := d.Clock
	if clock == nil {
		clock = cache.SystemClock()
	}
	return base{db: d.DB, cache: d.Cache, clock: clock, log: d.Log.WithName(name), blob: d.Blob}
}

func (b base) now() time.Time {
	return b.clock.Now().UTC()
}

func (b base) inTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	return b.db.RunInTx(ctx, nil, fn)
}

// invalidate drops every cached key of the given regions.
func (b base) invalidate(regions ...string) {
	for _, r := range regions {
		n := b.cache.Invalidate(r)
		b.log.V(1).Info("cache invalidated", "region", r, "removed", n)
	}
}

// Upload is one file of a multipart request.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}
