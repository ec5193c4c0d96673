package query

import "strings"

// Residual is an in-memory predicate applied after the store returned a page.
type Residual[T any] func(T) bool

// All combines predicates with AND. Nil predicates are skipped; with nothing
// left the result is nil, meaning "no residual filtering".
func All[T any](preds ...Residual[T]) Residual[T] {
	var active []Residual[T]
	for _, p := range preds {
		if p != nil {
			active = append(active, p)
		}
	}
	switch len(active) {
	case 0:
		return nil
	case 1:
		return active[0]
	}
	return func(v T) bool {
		for _, p := range active {
			if !p(v) {
				return false
			}
		}
		return true
	}
}

// Filter keeps the items pred accepts, preserving order. A nil pred keeps everything.
func Filter[T any](items []T, pred Residual[T]) []T {
	if pred == nil {
		return items
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if pred(item) {
			out = append(out, item)
		}
	}
	return out
}

// Searchable records expose the text fields a keyword search looks at.
type Searchable interface {
	SearchFields() []string
}

// Keyword matches records where any search field contains term, ignoring
// case. An empty term yields nil.
func Keyword[T Searchable](term string) Residual[T] {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}
	return func(v T) bool {
		for _, f := range v.SearchFields() {
			if strings.Contains(strings.ToLower(f), term) {
				return true
			}
		}
		return false
	}
}
