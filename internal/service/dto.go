package service

import (
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"

	"github.com/Victorkib/mentacare-backend-admin/internal/domain"
)

const dateLayout = "2006-01-02"

var phonePattern = regexp.MustCompile(`^\+?[0-9 ()\-]{6,20}$`)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func parseOptionalID(s string) (*uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

var isUUID = validation.By(func(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	if _, err := uuid.Parse(s); err != nil {
		return validation.NewError("validation_is_uuid", "must be a valid id")
	}
	return nil
})

type PatientInput struct {
	FullName            string                   `json:"fullName"`
	Email               string                   `json:"email"`
	Phone               string                   `json:"phone"`
	Gender              string                   `json:"gender"`
	DateOfBirth         string                   `json:"dateOfBirth"`
	Address             string                   `json:"address"`
	EmergencyContact    *domain.EmergencyContact `json:"emergencyContact"`
	ProfileComplete     bool                     `json:"isProfileComplete"`
	Status              string                   `json:"status"`
	AssignedTherapistID string                   `json:"assignedTherapistId"`
}

func (in PatientInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.FullName, validation.Required, validation.Length(2, 120)),
		validation.Field(&in.Email, validation.Required, is.EmailFormat),
		validation.Field(&in.Phone, validation.Match(phonePattern)),
		validation.Field(&in.Gender, validation.In("male", "female", "non_binary", "other", "prefer_not_to_say")),
		validation.Field(&in.DateOfBirth, validation.Date(dateLayout).Max(time.Now())),
		validation.Field(&in.Status, validation.In("active", "inactive", "discharged")),
		validation.Field(&in.AssignedTherapistID, isUUID),
	)
}

type TherapistInput struct {
	FullName        string                    `json:"fullName"`
	Email           string                    `json:"email"`
	Phone           string                    `json:"phone"`
	Specialization  string                    `json:"specialization"`
	Title           string                    `json:"title"`
	Bio             string                    `json:"bio"`
	ExperienceYears int                       `json:"experienceYears"`
	Verified        bool                      `json:"isVerified"`
	ProfileComplete bool                      `json:"isProfileComplete"`
	Availability    []domain.AvailabilitySlot `json:"availability"`
}

func (in TherapistInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.FullName, validation.Required, validation.Length(2, 120)),
		validation.Field(&in.Email, validation.Required, is.EmailFormat),
		validation.Field(&in.Phone, validation.Match(phonePattern)),
		validation.Field(&in.Specialization, validation.Length(0, 80)),
		validation.Field(&in.Bio, validation.Length(0, 2000)),
		validation.Field(&in.ExperienceYears, validation.Min(0), validation.Max(80)),
		validation.Field(&in.Availability, validation.By(func(any) error {
			return validateSlots(in.Availability)
		})),
	)
}

type SessionInput struct {
	PatientID       string `json:"patientId"`
	TherapistID     string `json:"therapistId"`
	ScheduledAt     string `json:"scheduledAt"`
	DurationMinutes int    `json:"durationMinutes"`
	Type            string `json:"type"`
	Notes           string `json:"notes"`
}

func (in SessionInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.PatientID, validation.Required, isUUID),
		validation.Field(&in.TherapistID, validation.Required, isUUID),
		validation.Field(&in.ScheduledAt, validation.Required, validation.Date(time.RFC3339)),
		validation.Field(&in.DurationMinutes, validation.Min(0), validation.Max(480)),
		validation.Field(&in.Type, validation.In("individual", "group", "couple", "family", "online", "in_person")),
		validation.Field(&in.Notes, validation.Length(0, 10000)),
	)
}

// FileInput references an already hosted file.
type FileInput struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

func (in FileInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.URL, validation.Required, is.URL),
		validation.Field(&in.Size, validation.Min(int64(0))),
	)
}

type AttendanceInput struct {
	PatientAttended   bool `json:"patientAttended"`
	TherapistAttended bool `json:"therapistAttended"`
}

type NotesInput struct {
	Notes       *string     `json:"notes"`
	Attachments []FileInput `json:"attachments"`
}

func (in NotesInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Notes, validation.NilOrNotEmpty, validation.Length(0, 10000)),
		validation.Field(&in.Attachments),
	)
}

type AdminInput struct {
	Email       string      `json:"email"`
	Password    string      `json:"password"`
	FullName    string      `json:"fullName"`
	Role        domain.Role `json:"role"`
	TherapistID string      `json:"therapistId"`
}

func (in AdminInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, is.EmailFormat),
		validation.Field(&in.Password, validation.Required, validation.Length(8, 128)),
		validation.Field(&in.FullName, validation.Required, validation.Length(2, 120)),
		validation.Field(&in.Role, validation.Required, validation.By(validRole)),
		validation.Field(&in.TherapistID, isUUID),
	)
}

// AdminUpdate changes selected fields of an admin. Nil fields are left alone.
type AdminUpdate struct {
	FullName    *string      `json:"fullName"`
	Role        *domain.Role `json:"role"`
	Active      *bool        `json:"isActive"`
	TherapistID *string      `json:"therapistId"`
	Password    *string      `json:"password"`
}

func (in AdminUpdate) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.FullName, validation.NilOrNotEmpty, validation.Length(2, 120)),
		validation.Field(&in.Role, validation.NilOrNotEmpty, validation.By(validRole)),
		validation.Field(&in.TherapistID, isUUID),
		validation.Field(&in.Password, validation.NilOrNotEmpty, validation.Length(8, 128)),
	)
}

func validRole(v any) error {
	var r domain.Role
	switch x := v.(type) {
	case domain.Role:
		r = x
	case *domain.Role:
		if x == nil {
			return nil
		}
		r = *x
	}
	if !r.Valid() {
		return validation.NewError("validation_role", "must be one of super_admin, admin, professional, therapist")
	}
	return nil
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in LoginInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, is.EmailFormat),
		validation.Field(&in.Password, validation.Required),
	)
}

// BatchItem is one entry of a batch update: a record id and the fields to set.
type BatchItem struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

type BatchInput struct {
	Updates []BatchItem `json:"updates"`
}

const maxBatch = 100

func (in BatchInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Updates, validation.Required, validation.Length(1, maxBatch), validation.Each(validation.By(func(v any) error {
			item, _ := v.(BatchItem)
			if _, err := uuid.Parse(item.ID); err != nil {
				return validation.NewError("validation_batch_id", "each update needs a valid id")
			}
			if len(item.Fields) == 0 {
				return validation.NewError("validation_batch_fields", "each update needs fields")
			}
			return nil
		}))),
	)
}
