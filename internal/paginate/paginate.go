// Package paginate implements cursor pagination over an ordered source and the
// offset helper used by session listings.
package paginate

import (
	"context"
	"time"

	"github.com/Victorkib/mentacare-backend-admin/internal/query"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Order is a single descending-or-ascending ordering column. The record id
// always breaks ties in the same direction.
type Order struct {
	Field string
	Desc  bool
}

var (
	NewestFirst     = Order{Field: "created_at", Desc: true}
	RecentlyUpdated = Order{Field: "updated_at", Desc: true}
)

// Anchor is the position of the record a cursor names.
type Anchor struct {
	ID    string
	Value time.Time
}

// Source is an ordered collection the paginator can slice.
type Source[T any] interface {
	// Anchor resolves a cursor id. A nil anchor with a nil error means the
	// record no longer exists.
	Anchor(ctx context.Context, order Order, id string) (*Anchor, error)
	// Slice returns up to limit records matching spec, ordered by order,
	// strictly after the anchor when one is given.
	Slice(ctx context.Context, spec *query.Spec, order Order, after *Anchor, limit int) ([]T, error)
	// ID returns the cursor id of an item.
	ID(item T) string
}

// Page is one slice of an ordered listing.
//
// HasMore and Fetched describe the store-level page. Residual filters run
// after the fetch, so Items can be shorter than Fetched and a page can report
// HasMore with no items left. Cursor always names the last store-level record.
type Page[T any] struct {
	Items   []T    `json:"items"`
	HasMore bool   `json:"hasMore"`
	Cursor  string `json:"cursor,omitempty"`
	Fetched int    `json:"fetched"`
	Total   int    `json:"total"`
}

// ClampPageSize applies the default and the upper bound.
func ClampPageSize(n int) int {
	switch {
	case n <= 0:
		return DefaultPageSize
	case n > MaxPageSize:
		return MaxPageSize
	default:
		return n
	}
}

// Fetch reads one page from src. The source is asked for pageSize+1 records;
// the extra one only signals HasMore. A cursor that no longer resolves
// restarts from the first page.
func Fetch[T any](ctx context.Context, src Source[T], spec *query.Spec, order Order, pageSize int, cursor string) (Page[T], error) {
	size := ClampPageSize(pageSize)

	var after *Anchor
	if cursor != "" {
		a, err := src.Anchor(ctx, order, cursor)
		if err != nil {
			return Page[T]{}, err
		}
		after = a
	}

	items, err := src.Slice(ctx, spec, order, after, size+1)
	if err != nil {
		return Page[T]{}, err
	}

	page := Page[T]{}
	if len(items) > size {
		page.HasMore = true
		items = items[:size]
	}
	if items == nil {
		items = []T{}
	}
	page.Items = items
	page.Fetched = len(items)
	page.Total = len(items)
	if n := len(items); n > 0 {
		page.Cursor = src.ID(items[n-1])
	}
	return page, nil
}

// Filter applies a residual predicate to the items. Cursor, HasMore and
// Fetched keep their store-level values; Total becomes the filtered count.
func (p Page[T]) Filter(pred query.Residual[T]) Page[T] {
	p.Items = query.Filter(p.Items, pred)
	p.Total = len(p.Items)
	return p
}

// Map converts every item, keeping the page metadata.
func Map[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := Page[U]{
		Items:   make([]U, len(p.Items)),
		HasMore: p.HasMore,
		Cursor:  p.Cursor,
		Fetched: p.Fetched,
		Total:   p.Total,
	}
	for i, item := range p.Items {
		out.Items[i] = fn(item)
	}
	return out
}
