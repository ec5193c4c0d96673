package store

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Victorkib/mentacare-backend-admin/internal/domain"
)

type colKind int

const (
	kindString colKind = iota
	kindBool
	kindInt
	kindTime
	kindUUID
	kindJSON
)

// updatable lists, per collection, the columns a patch may touch and how to
// coerce incoming values for them.
var updatable = map[string]map[string]colKind{
	"patient": {
		"full_name":             kindString,
		"email":                 kindString,
		"phone":                 kindString,
		"gender":                kindString,
		"date_of_birth":         kindTime,
		"address":               kindString,
		"emergency_contact":     kindJSON,
		"profile_complete":      kindBool,
		"status":                kindString,
		"assigned_therapist_id": kindUUID,
		"flags":                 kindJSON,
	},
	"therapist": {
		"full_name":        kindString,
		"email":            kindString,
		"phone":            kindString,
		"specialization":   kindString,
		"title":            kindString,
		"bio":              kindString,
		"experience_years": kindInt,
		"verified":         kindBool,
		"profile_complete": kindBool,
		"availability":     kindJSON,
	},
	"session": {
		"scheduled_at":     kindTime,
		"duration_minutes": kindInt,
		"type":             kindString,
		"notes":            kindString,
	},
}

// aliases maps field names used by older clients and the previous document
// schema onto current column names.
var aliases = map[string]map[string]string{
	"patient": {
		"name":                "full_name",
		"fullName":            "full_name",
		"phoneNumber":         "phone",
		"dob":                 "date_of_birth",
		"dateOfBirth":         "date_of_birth",
		"emergencyContact":    "emergency_contact",
		"profileComplete":     "profile_complete",
		"isProfileComplete":   "profile_complete",
		"therapistId":         "assigned_therapist_id",
		"assignedTherapist":   "assigned_therapist_id",
		"assignedTherapistId": "assigned_therapist_id",
	},
	"therapist": {
		"name":              "full_name",
		"fullName":          "full_name",
		"phoneNumber":       "phone",
		"specialty":         "specialization",
		"yearsOfExperience": "experience_years",
		"experience":        "experience_years",
		"experienceYears":   "experience_years",
		"isVerified":        "verified",
		"profileComplete":   "profile_complete",
		"isProfileComplete": "profile_complete",
	},
	"session": {
		"date":            "scheduled_at",
		"scheduledAt":     "scheduled_at",
		"duration":        "duration_minutes",
		"durationMinutes": "duration_minutes",
		"sessionType":     "type",
	},
}

// TranslateLegacyFields maps client field names for collection onto column
// names and coerces each value to the column's type. Unknown or read-only
// fields are rejected. JSON columns come back encoded as strings.
func TranslateLegacyFields(collection string, fields map[string]any) (map[string]any, error) {
	cols, ok := updatable[collection]
	if !ok {
		return nil, fmt.Errorf("store: no updatable fields for %q", collection)
	}

	out := make(map[string]any, len(fields))
	for name, raw := range fields {
		col := name
		if alias, ok := aliases[collection][name]; ok {
			col = alias
		}
		kind, ok := cols[col]
		if !ok {
			return nil, domain.InvalidField(name, "is not an updatable field")
		}
		if _, dup := out[col]; dup {
			return nil, domain.InvalidField(name, "is set more than once")
		}
		v, err := coerce(kind, raw)
		if err != nil {
			return nil, domain.InvalidField(name, err.Error())
		}
		out[col] = v
	}
	return out, nil
}

func coerce(kind colKind, raw any) (any, error) {
	switch kind {
	case kindString:
		if raw == nil {
			return "", nil
		}
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("must be a string")
		}
		return strings.TrimSpace(s), nil
	case kindBool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("must be a boolean")
			}
			return b, nil
		}
		return nil, fmt.Errorf("must be a boolean")
	case kindInt:
		switch v := raw.(type) {
		case float64:
			if v != float64(int(v)) {
				return nil, fmt.Errorf("must be a whole number")
			}
			return int(v), nil
		case int:
			return v, nil
		case string:
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("must be a whole number")
			}
			return n, nil
		}
		return nil, fmt.Errorf("must be a whole number")
	case kindTime:
		if raw == nil {
			return nil, nil
		}
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("must be a date string")
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		return nil, fmt.Errorf("must be RFC 3339 or YYYY-MM-DD")
	case kindUUID:
		if raw == nil {
			return nil, nil
		}
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("must be an id string")
		}
		if s == "" {
			return nil, nil
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("must be a valid id")
		}
		return id, nil
	case kindJSON:
		if raw == nil {
			return nil, nil
		}
		b, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("must be JSON encodable")
		}
		return string(b), nil
	}
	return nil, fmt.Errorf("unsupported column")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
