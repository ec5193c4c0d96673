package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Admin is a back-office account. Therapist-role admins may be linked to a
// therapist record, which scopes the sessions they can see.
type Admin struct {
	bun.BaseModel `bun:"table:admins,alias:a"`

	ID           uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Email        string     `bun:"email,unique,notnull" json:"email"`
	PasswordHash string     `bun:"password_hash,notnull" json:"-"`
	FullName     string     `bun:"full_name,notnull" json:"fullName"`
	Role         Role       `bun:"role,notnull" json:"role"`
	TherapistID  *uuid.UUID `bun:"therapist_id,type:uuid" json:"therapistId,omitempty"`
	Active       bool       `bun:"active,notnull" json:"isActive"`
	LastLoginAt  *time.Time `bun:"last_login_at" json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt    time.Time  `bun:"updated_at,notnull" json:"updatedAt"`
}

// EmergencyContact is stored inline on the patient record.
type EmergencyContact struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship,omitempty"`
}

// Document is an uploaded file attached to a patient.
type Document struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	ContentType string    `json:"contentType,omitempty"`
	Size        int64     `json:"size,omitempty"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// TherapistSnapshot is the denormalized copy of the assigned therapist's
// display fields. It is written on (re)assignment only and can go stale.
type TherapistSnapshot struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Specialization string `json:"specialization"`
}

type Patient struct {
	bun.BaseModel `bun:"table:patients,alias:p"`

	ID                  uuid.UUID          `bun:"id,pk,type:uuid" json:"id"`
	FullName            string             `bun:"full_name,notnull" json:"fullName"`
	Email               string             `bun:"email,unique,notnull" json:"email"`
	Phone               string             `bun:"phone" json:"phone,omitempty"`
	Gender              string             `bun:"gender" json:"gender,omitempty"`
	DateOfBirth         *time.Time         `bun:"date_of_birth" json:"dateOfBirth,omitempty"`
	Address             string             `bun:"address" json:"address,omitempty"`
	EmergencyContact    *EmergencyContact  `bun:"emergency_contact" json:"emergencyContact,omitempty"`
	ProfileComplete     bool               `bun:"profile_complete,notnull" json:"isProfileComplete"`
	Status              string             `bun:"status" json:"status,omitempty"`
	AssignedTherapistID *uuid.UUID         `bun:"assigned_therapist_id,type:uuid" json:"assignedTherapistId,omitempty"`
	TherapistSnapshot   *TherapistSnapshot `bun:"therapist_snapshot" json:"therapistSnapshot,omitempty"`
	Flags               []string           `bun:"flags" json:"flags"`
	Documents           []Document         `bun:"documents" json:"documents"`
	CreatedAt           time.Time          `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt           time.Time          `bun:"updated_at,notnull" json:"updatedAt"`

	// Therapist is the live projection joined at read time.
	Therapist *TherapistProjection `bun:"-" json:"therapist,omitempty"`
}

// SearchFields lists the text a keyword search matches against.
func (p Patient) SearchFields() []string {
	return []string{p.FullName, p.Email}
}

// Projection returns the display subset other records embed.
func (p Patient) Projection() PatientProjection {
	return PatientProjection{ID: p.ID, FullName: p.FullName, Email: p.Email}
}

// AvailabilitySlot is a weekly recurring window, times as "HH:MM".
type AvailabilitySlot struct {
	Day   string `json:"day"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type Therapist struct {
	bun.BaseModel `bun:"table:therapists,alias:t"`

	ID              uuid.UUID          `bun:"id,pk,type:uuid" json:"id"`
	FullName        string             `bun:"full_name,notnull" json:"fullName"`
	Email           string             `bun:"email,unique,notnull" json:"email"`
	Phone           string             `bun:"phone" json:"phone,omitempty"`
	Specialization  string             `bun:"specialization" json:"specialization"`
	Title           string             `bun:"title" json:"title,omitempty"`
	Bio             string             `bun:"bio" json:"bio,omitempty"`
	ExperienceYears int                `bun:"experience_years,notnull" json:"experienceYears"`
	Verified        bool               `bun:"verified,notnull" json:"isVerified"`
	ProfileComplete bool               `bun:"profile_complete,notnull" json:"isProfileComplete"`
	Availability    []AvailabilitySlot `bun:"availability" json:"availability"`
	CreatedAt       time.Time          `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt       time.Time          `bun:"updated_at,notnull" json:"updatedAt"`
}

// SearchFields lists the text a keyword search matches against.
func (t Therapist) SearchFields() []string {
	return []string{t.FullName, t.Email, t.Specialization, t.Title, t.Bio}
}

// Projection returns the display subset other records embed.
func (t Therapist) Projection() TherapistProjection {
	return TherapistProjection{ID: t.ID, FullName: t.FullName, Email: t.Email, Specialization: t.Specialization}
}

// Snapshot returns the denormalized copy stored on an assigned patient.
func (t Therapist) Snapshot() TherapistSnapshot {
	return TherapistSnapshot{Name: t.FullName, Email: t.Email, Specialization: t.Specialization}
}

// TherapistProjection is the subset of a therapist joined onto other records.
type TherapistProjection struct {
	ID             uuid.UUID `bun:"id" json:"id"`
	FullName       string    `bun:"full_name" json:"fullName"`
	Email          string    `bun:"email" json:"email"`
	Specialization string    `bun:"specialization" json:"specialization"`
}

// PatientProjection is the subset of a patient joined onto other records.
type PatientProjection struct {
	ID       uuid.UUID `bun:"id" json:"id"`
	FullName string    `bun:"full_name" json:"fullName"`
	Email    string    `bun:"email" json:"email"`
}

// Attachment is a file or link attached to session notes.
type Attachment struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	ContentType string    `json:"contentType,omitempty"`
	Size        int64     `json:"size,omitempty"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// Attendance records who showed up and who recorded it.
type Attendance struct {
	PatientAttended   bool      `json:"patientAttended"`
	TherapistAttended bool      `json:"therapistAttended"`
	MarkedAt          time.Time `json:"markedAt"`
	MarkedBy          uuid.UUID `json:"markedBy"`
}

type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`

	ID              uuid.UUID     `bun:"id,pk,type:uuid" json:"id"`
	PatientID       uuid.UUID     `bun:"patient_id,type:uuid,notnull" json:"patientId"`
	TherapistID     uuid.UUID     `bun:"therapist_id,type:uuid,notnull" json:"therapistId"`
	ScheduledAt     time.Time     `bun:"scheduled_at,notnull" json:"scheduledAt"`
	DurationMinutes int           `bun:"duration_minutes,notnull" json:"durationMinutes"`
	Type            string        `bun:"type" json:"type,omitempty"`
	Status          SessionStatus `bun:"status,notnull" json:"status"`
	Notes           string        `bun:"notes" json:"notes,omitempty"`
	Attachments     []Attachment  `bun:"attachments" json:"attachments"`
	Attendance      *Attendance   `bun:"attendance" json:"attendance,omitempty"`
	CreatedAt       time.Time     `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt       time.Time     `bun:"updated_at,notnull" json:"updatedAt"`

	Patient   *PatientProjection   `bun:"-" json:"patient,omitempty"`
	Therapist *TherapistProjection `bun:"-" json:"therapist,omitempty"`
}

// Normalize replaces nil lists with empty ones so they encode as [].
func (p *Patient) Normalize() {
	if p.Flags == nil {
		p.Flags = []string{}
	}
	if p.Documents == nil {
		p.Documents = []Document{}
	}
}

// Normalize replaces nil lists with empty ones so they encode as [].
func (t *Therapist) Normalize() {
	if t.Availability == nil {
		t.Availability = []AvailabilitySlot{}
	}
}

// Normalize replaces nil lists with empty ones so they encode as [].
func (s *Session) Normalize() {
	if s.Attachments == nil {
		s.Attachments = []Attachment{}
	}
}
