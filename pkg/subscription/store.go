package subscription

import (
	"context"

	"github.com/google/uuid"
)

// Store defines subscription persistence. The user id is the primary key;
// the provider subscription reference is a unique secondary key used by
// webhook dispatch.
type Store interface {
	// ByUserID returns the user's subscription row or ErrNotFound.
	ByUserID(ctx context.Context, userID uuid.UUID) (*Subscription, error)

	// BySubscriptionRef returns the row holding the provider reference,
	// or ErrNotFound.
	BySubscriptionRef(ctx context.Context, ref string) (*Subscription, error)

	// Create inserts a new row. Returns ErrAlreadyExists if the user
	// already has one, whatever its status.
	Create(ctx context.Context, sub *Subscription) error

	// Update overwrites the user's existing row.
	Update(ctx context.Context, sub *Subscription) error
}
