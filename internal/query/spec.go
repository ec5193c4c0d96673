package query

import (
	"fmt"
	"reflect"

	"github.com/uptrace/bun"
)

// Op is the kind of store-level predicate.
type Op string

const (
	OpEquals     Op = "equals"
	OpMembership Op = "membership"
	OpRange      Op = "range"
)

// Predicate is one store-level condition. Range uses Min and Max, where a
// nil bound is open; Min is inclusive and Max exclusive.
type Predicate struct {
	Field string
	Op    Op
	Value any
	Min   any
	Max   any
}

// Spec is the ordered set of predicates for one request. Fields are checked
// against the whitelist given to NewSpec; the first violation is kept in Err
// and nothing more is added.
type Spec struct {
	allowed map[string]struct{}
	preds   []Predicate
	err     error
}

// NewSpec returns an empty Spec accepting only the given column names.
func NewSpec(allowed ...string) *Spec {
	set := make(map[string]struct{}, len(allowed))
	for _, f := range allowed {
		set[f] = struct{}{}
	}
	return &Spec{allowed: set}
}

func (s *Spec) add(p Predicate) *Spec {
	if s.err != nil {
		return s
	}
	if _, ok := s.allowed[p.Field]; !ok {
		s.err = fmt.Errorf("query: field %q is not filterable", p.Field)
		return s
	}
	s.preds = append(s.preds, p)
	return s
}

// Equals adds field = value.
func (s *Spec) Equals(field string, value any) *Spec {
	return s.add(Predicate{Field: field, Op: OpEquals, Value: value})
}

// In adds field IN (values). values must be a slice; an empty slice matches nothing.
func (s *Spec) In(field string, values any) *Spec {
	return s.add(Predicate{Field: field, Op: OpMembership, Value: values})
}

// Range adds min <= field < max. Either bound may be nil.
func (s *Spec) Range(field string, min, max any) *Spec {
	return s.add(Predicate{Field: field, Op: OpRange, Min: min, Max: max})
}

// Predicates returns a copy of the collected predicates in insertion order.
func (s *Spec) Predicates() []Predicate {
	if s == nil {
		return nil
	}
	return append([]Predicate(nil), s.preds...)
}

// Err reports the first rejected field, if any.
func (s *Spec) Err() error {
	if s == nil {
		return nil
	}
	return s.err
}

// Len is the number of accepted predicates.
func (s *Spec) Len() int {
	if s == nil {
		return 0
	}
	return len(s.preds)
}

// Apply pushes every predicate down as a WHERE clause. Identifiers are quoted.
func (s *Spec) Apply(q *bun.SelectQuery) *bun.SelectQuery {
	if s == nil {
		return q
	}
	for _, p := range s.preds {
		col := bun.Ident(p.Field)
		switch p.Op {
		case OpEquals:
			q = q.Where("? = ?", col, p.Value)
		case OpMembership:
			if sliceLen(p.Value) == 0 {
				q = q.Where("1 = 0")
				continue
			}
			q = q.Where("? IN (?)", col, bun.In(p.Value))
		case OpRange:
			if p.Min != nil {
				q = q.Where("? >= ?", col, p.Min)
			}
			if p.Max != nil {
				q = q.Where("? < ?", col, p.Max)
			}
		}
	}
	return q
}

func sliceLen(v any) int {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return 0
	}
	return rv.Len()
}
