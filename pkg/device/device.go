package device

import (
	"time"

	"github.com/google/uuid"
)

// DefaultName is used when registration does not supply a display name.
const DefaultName = "Unknown Device"

// Device is one registered browser installation. DeviceID is the
// client-generated external identifier and is unique across all users;
// the first registration claims it.
type Device struct {
	UserID     uuid.UUID
	DeviceID   string
	Name       string
	LastActive time.Time
	CreatedAt  time.Time
}
