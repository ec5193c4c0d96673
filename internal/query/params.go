package query

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Victorkib/mentacare-backend-admin/internal/domain"
)

func isUnset(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, "all")
}

// String returns the trimmed parameter, or ok=false when it is unset, empty or "all".
func String(values url.Values, name string) (string, bool) {
	v := strings.TrimSpace(values.Get(name))
	if isUnset(v) {
		return "", false
	}
	return v, true
}

// Bool parses a true/false parameter. Unset returns nil.
func Bool(values url.Values, name string) (*bool, error) {
	v, ok := String(values, name)
	if !ok {
		return nil, nil
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return nil, domain.InvalidField(name, "must be true or false")
	}
	return &b, nil
}

// UUID parses an identifier parameter. Unset returns nil.
func UUID(values url.Values, name string) (*uuid.UUID, error) {
	v, ok := String(values, name)
	if !ok {
		return nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, domain.InvalidField(name, "must be a valid id")
	}
	return &id, nil
}

// Int parses an integer parameter, returning def when unset.
func Int(values url.Values, name string, def int) (int, error) {
	v, ok := String(values, name)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, domain.InvalidField(name, "must be an integer")
	}
	return n, nil
}
