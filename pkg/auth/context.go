package auth

import (
	"context"

	"github.com/google/uuid"
)

type userIDCtxKey struct{}

// SetUserID returns a context carrying the authenticated user id.
func SetUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDCtxKey{}, id)
}

// UserIDFromContext extracts the authenticated user id set by the middleware.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDCtxKey{}).(uuid.UUID)
	return id, ok
}
