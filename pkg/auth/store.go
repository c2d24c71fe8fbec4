package auth

import (
	"context"

	"github.com/google/uuid"
)

// UserStore defines the persistence operations required by the auth service.
// Implementations must enforce username and email uniqueness and return
// ErrUserAlreadyExists on violation.
type UserStore interface {
	Create(ctx context.Context, user *User) error
	ByID(ctx context.Context, id uuid.UUID) (*User, error)
	ByUsername(ctx context.Context, username string) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
}
