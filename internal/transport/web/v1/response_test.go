package v1

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Victorkib/mentacare-backend-admin/internal/domain"
)

func failWith(t *testing.T, rs *Responder, err error) (int, Envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	rs.Fail(rec, httptest.NewRequest(http.MethodGet, "/", nil), err)
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec.Code, env
}

func TestResponder_StatusMapping(t *testing.T) {
	rs := &Responder{Log: logr.Discard()}
	tests := []struct {
		name string
		err  error
		want int
		code string
	}{
		{"validation", domain.InvalidField("email", "must be a valid email address"), http.StatusBadRequest, domain.CodeInvalid},
		{"bad input", domain.Invalid("malformed JSON body"), http.StatusBadRequest, domain.CodeInvalid},
		{"conflict", domain.Conflict("therapist has patients", map[string]any{"activePatients": 2}), http.StatusBadRequest, domain.CodeConflict},
		{"unauthorized", domain.Unauthorized("authentication required"), http.StatusUnauthorized, domain.CodeUnauthorized},
		{"forbidden", domain.Forbidden("no"), http.StatusForbidden, domain.CodeForbidden},
		{"not found", domain.NotFound("patient", "p1"), http.StatusNotFound, domain.CodeNotFound},
		{"plain error", errors.New("connection reset"), http.StatusInternalServerError, domain.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := failWith(t, rs, tt.err)
			assert.Equal(t, tt.want, status)
			assert.Equal(t, tt.code, env.Error)
			assert.False(t, env.Success)
		})
	}
}

func TestResponder_Details(t *testing.T) {
	rs := &Responder{Log: logr.Discard()}

	_, env := failWith(t, rs, domain.InvalidField("email", "must be a valid email address"))
	assert.Equal(t, map[string]any{"email": "must be a valid email address"}, env.Details)

	_, env = failWith(t, rs, domain.Conflict("therapist has patients", map[string]any{"activePatients": 2}))
	assert.Equal(t, map[string]any{"activePatients": float64(2)}, env.Details)
}

func TestResponder_InternalErrorExposure(t *testing.T) {
	cause := errors.New("pq: relation \"patients\" does not exist")

	_, env := failWith(t, &Responder{Log: logr.Discard()}, cause)
	assert.Nil(t, env.Details)
	assert.Equal(t, "internal server error", env.Message)

	_, env = failWith(t, &Responder{Log: logr.Discard(), ExposeInternal: true}, domain.Internal(cause, "list patients"))
	details, ok := env.Details.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, details["cause"], "does not exist")
}
