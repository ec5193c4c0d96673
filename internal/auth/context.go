package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/Victorkib/mentacare-backend-admin/internal/domain"
)

// Identity is the authenticated caller of a request.
type Identity struct {
	AdminID uuid.UUID
	Email   string
	Role    domain.Role
	// TokenID and Claims of the access token that authenticated the request.
	TokenID string
	Claims  Claims
}

type ctxKey int

const identityKey ctxKey = 1

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
