// Package v1 holds the response envelope and request helpers shared by the
// /api handlers.
package v1

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-logr/logr"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/Victorkib/mentacare-backend-admin/internal/domain"
	"github.com/Victorkib/mentacare-backend-admin/internal/transport/web/mw"
)

// Envelope is the single response shape of every endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}

// Responder writes envelopes and maps errors to statuses.
type Responder struct {
	Log logr.Logger
	// ExposeInternal returns the underlying message of unhandled failures.
	ExposeInternal bool
}

func (rs *Responder) write(w http.ResponseWriter, r *http.Request, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	if id := mw.RequestIDFromCtx(r.Context()); id != "" {
		w.Header().Set(mw.RequestIDHeader, id)
	}
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	if err := json.NewEncoder(w).Encode(env); err != nil {
		rs.Log.Error(err, "encode response", "path", r.URL.Path)
	}
}

func (rs *Responder) OK(w http.ResponseWriter, r *http.Request, data any) {
	rs.write(w, r, http.StatusOK, Envelope{Success: true, Data: data})
}

func (rs *Responder) Created(w http.ResponseWriter, r *http.Request, data any) {
	rs.write(w, r, http.StatusCreated, Envelope{Success: true, Data: data})
}

// Message writes a success envelope that carries only a message.
func (rs *Responder) Message(w http.ResponseWriter, r *http.Request, msg string) {
	rs.write(w, r, http.StatusOK, Envelope{Success: true, Message: msg})
}

// Fail maps err onto a status and writes the error envelope.
func (rs *Responder) Fail(w http.ResponseWriter, r *http.Request, err error) {
	status, env := rs.mapError(err)
	if status >= http.StatusInternalServerError {
		rs.Log.Error(err, "request failed", "method", r.Method, "path", r.URL.Path,
			"request_id", mw.RequestIDFromCtx(r.Context()))
	} else {
		rs.Log.V(1).Info("request rejected", "status", status, "error", err.Error(), "path", r.URL.Path)
	}
	rs.write(w, r, status, env)
}

func (rs *Responder) mapError(err error) (int, Envelope) {
	var ge *goerrors.Error
	if !errors.As(err, &ge) {
		if domain.IsNotFound(err) {
			return http.StatusNotFound, Envelope{Message: "resource not found", Error: domain.CodeNotFound}
		}
		return http.StatusInternalServerError, rs.internal(err)
	}

	env := Envelope{Message: ge.Message, Error: ge.TextCode}
	switch ge.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		if env.Error == "" {
			env.Error = domain.CodeInvalid
		}
		if fields := ge.ValidationMap(); len(fields) > 0 {
			env.Details = fields
		}
		return http.StatusBadRequest, env
	case goerrors.CategoryConflict:
		if len(ge.Metadata) > 0 {
			env.Details = ge.Metadata
		}
		return http.StatusBadRequest, env
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized, env
	case goerrors.CategoryAuthz:
		return http.StatusForbidden, env
	case goerrors.CategoryNotFound:
		return http.StatusNotFound, env
	default:
		return http.StatusInternalServerError, rs.internal(err)
	}
}

func (rs *Responder) internal(err error) Envelope {
	env := Envelope{Message: "internal server error", Error: domain.CodeInternal}
	if rs.ExposeInternal {
		env.Details = map[string]string{"cause": err.Error()}
	}
	return env
}

// Decode reads a JSON body into dst. Unknown fields are ignored.
func Decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Invalid("request body is required")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.Invalid("request body too large")
		}
		return domain.Invalid("malformed JSON body")
	}
	return nil
}

// PathID parses the {id} path segment.
func PathID(r *http.Request) (uuid.UUID, error) {
	raw := r.PathValue("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.InvalidField("id", "must be a valid id")
	}
	return id, nil
}

// IsMultipart reports whether the request carries a multipart form.
func IsMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}
