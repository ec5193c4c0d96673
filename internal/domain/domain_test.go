package domain

import (
	"database/sql"
	"fmt"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	repository "github.com/goliatone/go-repository-bun"
)

func TestRole(t *testing.T) {
	for _, r := range Roles {
		if !r.Valid() {
			t.Errorf("%s should be valid", r)
		}
	}
	if Role("owner").Valid() || Role("").Valid() {
		t.Error("unknown roles must not be valid")
	}
	if !RoleAdmin.In(RoleSuperAdmin, RoleAdmin) {
		t.Error("admin should be in the staff set")
	}
	if RoleTherapist.In(RoleSuperAdmin, RoleAdmin) || RoleAdmin.In() {
		t.Error("In must only match listed roles")
	}
}

func TestSessionStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to SessionStatus
		want     bool
	}{
		{SessionScheduled, SessionCompleted, true},
		{SessionScheduled, SessionCancelled, true},
		{SessionScheduled, SessionNoShow, true},
		{SessionScheduled, SessionScheduled, true},
		{SessionCompleted, SessionCompleted, true},
		{SessionCompleted, SessionScheduled, false},
		{SessionCancelled, SessionCompleted, false},
		{SessionNoShow, SessionCancelled, false},
		{SessionScheduled, SessionStatus("paused"), false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition() = %v, want %v", got, tt.want)
			}
		})
	}
	if SessionScheduled.Terminal() {
		t.Error("scheduled is not terminal")
	}
}

func TestErrorPredicates(t *testing.T) {
	if !IsNotFound(NotFound("patient", "p-1")) {
		t.Error("NotFound should be recognised")
	}
	if !IsNotFound(fmt.Errorf("load: %w", sql.ErrNoRows)) {
		t.Error("sql.ErrNoRows should count as not found")
	}
	if !IsNotFound(repository.MapDatabaseError(sql.ErrNoRows, "sqlite")) {
		t.Error("the repository's RECORD_NOT_FOUND error should count as not found")
	}
	if IsNotFound(repository.MapDatabaseError(sql.ErrTxDone, "sqlite")) {
		t.Error("a finished transaction is not a missing record")
	}
	if !IsConflict(Conflict("busy", map[string]any{"activePatients": 2})) {
		t.Error("Conflict should be recognised")
	}
	if IsConflict(Invalid("bad")) {
		t.Error("bad input is not a conflict")
	}
	if !IsValidation(InvalidField("email", "is required")) {
		t.Error("InvalidField should be a validation error")
	}

	in := struct{ Email string }{}
	err := FromValidation(validation.ValidateStruct(&in, validation.Field(&in.Email, validation.Required)))
	if !IsValidation(err) {
		t.Errorf("FromValidation() = %v", err)
	}
	if FromValidation(nil) != nil || Internal(nil, "noop") != nil {
		t.Error("nil errors must stay nil")
	}
}
