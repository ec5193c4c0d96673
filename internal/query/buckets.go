package query

import (
	"strings"
	"time"

	"github.com/Victorkib/mentacare-backend-admin/internal/domain"
)

// Bucket is a named inclusive range. Max < 0 means unbounded.
type Bucket struct {
	Name string
	Min  int
	Max  int
}

func (b Bucket) Contains(v int) bool {
	if v < b.Min {
		return false
	}
	return b.Max < 0 || v <= b.Max
}

// ExperienceBuckets group therapists by years of practice. "6-10" and "10+"
// both contain 10.
var ExperienceBuckets = []Bucket{
	{Name: "0-2", Min: 0, Max: 2},
	{Name: "3-5", Min: 3, Max: 5},
	{Name: "6-10", Min: 6, Max: 10},
	{Name: "10+", Min: 10, Max: -1},
}

// AgeBuckets group patients by age in whole years.
var AgeBuckets = []Bucket{
	{Name: "Under 18", Min: 0, Max: 17},
	{Name: "18-29", Min: 18, Max: 29},
	{Name: "30-49", Min: 30, Max: 49},
	{Name: "50-64", Min: 50, Max: 64},
	{Name: "65+", Min: 65, Max: -1},
}

// LookupBucket finds a bucket by name, ignoring case and surrounding space.
func LookupBucket(buckets []Bucket, name string) (Bucket, bool) {
	name = strings.TrimSpace(name)
	for _, b := range buckets {
		if strings.EqualFold(b.Name, name) {
			return b, true
		}
	}
	return Bucket{}, false
}

// BucketNames lists the names accepted for buckets.
func BucketNames(buckets []Bucket) []string {
	names := make([]string, len(buckets))
	for i, b := range buckets {
		names[i] = b.Name
	}
	return names
}

// InBucket builds a residual matching records whose value falls into the
// named bucket. Unset and "all" yield nil; unknown names are rejected.
func InBucket[T any](param, name string, buckets []Bucket, value func(T) int) (Residual[T], error) {
	if isUnset(name) {
		return nil, nil
	}
	b, ok := LookupBucket(buckets, name)
	if !ok {
		return nil, domain.InvalidField(param, "must be one of "+strings.Join(BucketNames(buckets), ", "))
	}
	return func(v T) bool { return b.Contains(value(v)) }, nil
}

// AgeGroup matches records whose date of birth puts them in the named age
// bucket at now. Records without a date of birth never match.
func AgeGroup[T any](param, name string, now time.Time, dob func(T) *time.Time) (Residual[T], error) {
	if isUnset(name) {
		return nil, nil
	}
	b, ok := LookupBucket(AgeBuckets, name)
	if !ok {
		return nil, domain.InvalidField(param, "must be one of "+strings.Join(BucketNames(AgeBuckets), ", "))
	}
	return func(v T) bool {
		d := dob(v)
		if d == nil {
			return false
		}
		return b.Contains(AgeAt(*d, now))
	}, nil
}

// AgeAt returns the age in completed years on now.
func AgeAt(dob, now time.Time) int {
	dob = dob.In(now.Location())
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// AgeBucketOf names the age bucket for dob at now, or "" if dob is nil.
func AgeBucketOf(dob *time.Time, now time.Time) string {
	if dob == nil {
		return ""
	}
	age := AgeAt(*dob, now)
	for _, b := range AgeBuckets {
		if b.Contains(age) {
			return b.Name
		}
	}
	return ""
}
