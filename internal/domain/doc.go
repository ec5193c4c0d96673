// Package domain holds the record types stored by the admin backend, the
// roles used for authorization and the error constructors every layer shares.
package domain
