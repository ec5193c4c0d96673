// Package enrich joins display projections of referenced records onto a page
// of primary records, batching the foreign lookups.
package enrich

import (
	"context"
)

// BatchSize is the largest membership list a single lookup receives.
const BatchSize = 10

// Lookup resolves one batch of ids. Ids with no match are simply absent from
// the result.
type Lookup[K comparable, V any] func(ctx context.Context, ids []K) (map[K]V, error)

// Distinct drops duplicates and zero values, keeping first-seen order.
func Distinct[K comparable](ids []K) []K {
	var zero K
	seen := make(map[K]struct{}, len(ids))
	out := make([]K, 0, len(ids))
	for _, id := range ids {
		if id == zero {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Batches splits ids into consecutive chunks of at most size elements.
func Batches[K any](ids []K, size int) [][]K {
	if size <= 0 {
		size = BatchSize
	}
	var out [][]K
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end])
	}
	return out
}

// Collect runs lookup once per batch of the distinct ids and merges the
// results. The first lookup error aborts the whole call.
func Collect[K comparable, V any](ctx context.Context, ids []K, lookup Lookup[K, V]) (map[K]V, error) {
	merged := make(map[K]V)
	for _, batch := range Batches(Distinct(ids), BatchSize) {
		found, err := lookup(ctx, batch)
		if err != nil {
			return nil, err
		}
		for id, v := range found {
			merged[id] = v
		}
	}
	return merged, nil
}

// Join attaches the projection for each record's foreign id. Records with no
// foreign id, or whose id matches nothing, are left untouched.
func Join[T any, K comparable, P any](
	ctx context.Context,
	records []T,
	foreignID func(T) (K, bool),
	lookup Lookup[K, P],
	attach func(*T, P),
) error {
	ids := make([]K, 0, len(records))
	for _, r := range records {
		if id, ok := foreignID(r); ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	projections, err := Collect(ctx, ids, lookup)
	if err != nil {
		return err
	}

	for i := range records {
		id, ok := foreignID(records[i])
		if !ok {
			continue
		}
		if p, found := projections[id]; found {
			attach(&records[i], p)
		}
	}
	return nil
}

// Count runs a batched counter over ids. Every distinct id appears in the
// result, with zero when the counter reported nothing for it.
func Count[K comparable](ctx context.Context, ids []K, counter Lookup[K, int]) (map[K]int, error) {
	counts, err := Collect(ctx, ids, counter)
	if err != nil {
		return nil, err
	}
	for _, id := range Distinct(ids) {
		if _, ok := counts[id]; !ok {
			counts[id] = 0
		}
	}
	return counts, nil
}
