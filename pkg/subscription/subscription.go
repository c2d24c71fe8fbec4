package subscription

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the local subscription lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusPastDue   Status = "past_due"
	StatusCancelled Status = "cancelled"
)

// Subscription is a user's one subscription row. The user id is unique
// across rows, which is what enforces the one-subscription-per-user
// invariant; cancellation is a status transition, never a row removal.
type Subscription struct {
	UserID           uuid.UUID
	CustomerRef      string // provider customer reference
	SubscriptionRef  string // provider subscription reference, unique
	Status           Status
	Plan             Plan
	DeviceLimit      int
	CurrentPeriodEnd *time.Time
	LastEventAt      *time.Time // highest-seen provider event timestamp
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsActive reports whether billing is current.
func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive
}

// IsCancelled reports whether the row reached its terminal state.
func (s *Subscription) IsCancelled() bool {
	return s.Status == StatusCancelled
}

// statusFromProvider maps the processor's status vocabulary onto the local
// one. The processor's vocabulary is a superset; unknown values are
// reported as not-ok and the caller keeps the current status.
func statusFromProvider(providerStatus string) (Status, bool) {
	switch strings.ToLower(providerStatus) {
	case "active", "trialing":
		return StatusActive, true
	case "past_due":
		return StatusPastDue, true
	case "canceled", "cancelled", "expired":
		return StatusCancelled, true
	default:
		return "", false
	}
}
