package domain

import (
	"database/sql"
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
)

// Text codes attached to domain errors. The HTTP layer passes them through.
const (
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeInvalid      = "INVALID_INPUT"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeInternal     = "INTERNAL"
)

// NotFound reports a missing record of the given kind.
func NotFound(kind string, id any) error {
	return goerrors.New(fmt.Sprintf("%s %v not found", kind, id), goerrors.CategoryNotFound).
		WithTextCode(CodeNotFound)
}

// Conflict reports a business-rule violation. meta is returned to the client
// as error details.
func Conflict(message string, meta map[string]any) error {
	err := goerrors.New(message, goerrors.CategoryConflict).WithTextCode(CodeConflict)
	if len(meta) > 0 {
		err = err.WithMetadata(meta)
	}
	return err
}

// Invalid reports a malformed request value.
func Invalid(message string) error {
	return goerrors.New(message, goerrors.CategoryBadInput).WithTextCode(CodeInvalid)
}

// InvalidField reports a single bad field with a per-field message.
func InvalidField(field, message string) error {
	return goerrors.NewValidation("validation failed", goerrors.FieldError{Field: field, Message: message})
}

func Unauthorized(message string) error {
	return goerrors.New(message, goerrors.CategoryAuth).WithTextCode(CodeUnauthorized)
}

func Forbidden(message string) error {
	return goerrors.New(message, goerrors.CategoryAuthz).WithTextCode(CodeForbidden)
}

// FromValidation converts ozzo-validation errors into a validation error with
// per-field messages. A nil err stays nil.
func FromValidation(err error) error {
	if err == nil {
		return nil
	}
	return goerrors.FromOzzoValidation(err, "validation failed")
}

// Internal wraps a store or infrastructure failure.
func Internal(err error, message string) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, message)
}

// IsNotFound reports whether err means the record does not exist, including
// the repository's RECORD_NOT_FOUND database errors.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || goerrors.IsNotFound(err) || repository.IsRecordNotFound(err)
}

// IsConflict reports whether err is a business-rule conflict.
func IsConflict(err error) bool {
	return goerrors.IsCategory(err, goerrors.CategoryConflict)
}

// IsValidation reports whether err carries per-field validation failures.
func IsValidation(err error) bool {
	return goerrors.IsValidation(err)
}
