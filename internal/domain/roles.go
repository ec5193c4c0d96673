package domain

import "slices"

// Role is an admin account's authorization level.
type Role string

const (
	RoleSuperAdmin   Role = "super_admin"
	RoleAdmin        Role = "admin"
	RoleProfessional Role = "professional"
	RoleTherapist    Role = "therapist"
)

// Roles lists every role, most privileged first.
var Roles = []Role{RoleSuperAdmin, RoleAdmin, RoleProfessional, RoleTherapist}

func (r Role) Valid() bool {
	return slices.Contains(Roles, r)
}

func (r Role) String() string { return string(r) }

// In reports whether r is one of allowed.
func (r Role) In(allowed ...Role) bool {
	return slices.Contains(allowed, r)
}

// SessionStatus is the lifecycle state of a session.
type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
	SessionNoShow    SessionStatus = "no_show"
)

var SessionStatuses = []SessionStatus{SessionScheduled, SessionCompleted, SessionCancelled, SessionNoShow}

func (s SessionStatus) Valid() bool {
	return slices.Contains(SessionStatuses, s)
}

// Terminal statuses cannot be left once reached.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionCancelled || s == SessionNoShow
}

// CanTransition reports whether a session may move from s to next.
// Setting the current status again is allowed.
func (s SessionStatus) CanTransition(next SessionStatus) bool {
	if !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	return !s.Terminal()
}
