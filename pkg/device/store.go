package device

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store defines device persistence. DeviceID carries a global uniqueness
// constraint; Delete and SetLastActive are scoped to (device id, owner) so
// one user can never observe or touch another user's device.
type Store interface {
	// ByDeviceID returns the device holding the external id, whoever owns
	// it, or ErrNotFound.
	ByDeviceID(ctx context.Context, deviceID string) (*Device, error)

	// ListByUser returns all of the user's devices.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Device, error)

	// CountByUser returns how many devices the user has registered.
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)

	// Create inserts the device. Returns ErrAlreadyRegistered if the
	// external id is already claimed by any user.
	Create(ctx context.Context, d *Device) error

	// Delete removes the user's device or returns ErrNotFound.
	Delete(ctx context.Context, userID uuid.UUID, deviceID string) error

	// SetLastActive stamps the user's device or returns ErrNotFound.
	SetLastActive(ctx context.Context, userID uuid.UUID, deviceID string, at time.Time) error
}
