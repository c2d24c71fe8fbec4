package billing

import (
	"context"
	"time"
)

// Gateway is the synchronous facade over the payment processor plus the
// verifier for its inbound signed event feed. It exists to keep provider
// SDK types out of the subscription core and to make the core testable
// against a mock processor.
type Gateway interface {
	// CreateCustomer registers a billing customer for the given email and
	// returns the provider's customer reference.
	CreateCustomer(ctx context.Context, email string) (string, error)

	// AttachPaymentMethod makes methodRef the customer's default payment
	// method. Fails if the method reference is invalid.
	AttachPaymentMethod(ctx context.Context, customerRef, methodRef string) error

	// CreateSubscription starts a subscription for the customer against the
	// given price, charged to methodRef.
	CreateSubscription(ctx context.Context, customerRef, priceRef, methodRef string) (*SubscriptionResult, error)

	// CancelSubscription cancels at period end and returns the final state,
	// including the period end the subscription remains usable until.
	CancelSubscription(ctx context.Context, subscriptionRef string) (*SubscriptionResult, error)

	// CreateCheckoutSession creates a hosted checkout session carrying the
	// success token in its metadata and callback URL.
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)

	// RetrieveCheckoutSession loads a completed checkout session.
	RetrieveCheckoutSession(ctx context.Context, sessionRef string) (*CheckoutResult, error)

	// VerifyAndParseEvent authenticates a webhook payload against its
	// signature header and returns the normalized event. Returns
	// ErrInvalidSignature before any payload inspection on a bad signature.
	VerifyAndParseEvent(ctx context.Context, payload []byte, signature string) (*Event, error)
}

// SubscriptionResult is the provider's view of a subscription after a
// synchronous call.
type SubscriptionResult struct {
	SubscriptionRef string
	CustomerRef     string
	Status          string
	PeriodEnd       *time.Time
}

// CheckoutRequest carries everything the provider needs to build a hosted
// checkout session for one user/plan attempt.
type CheckoutRequest struct {
	UserID       string
	PriceRef     string
	SuccessToken string
	SuccessURL   string
}

// CheckoutSession is a hosted checkout session handle.
type CheckoutSession struct {
	SessionRef  string
	RedirectURL string
}

// CheckoutResult is the state of a checkout session after completion.
type CheckoutResult struct {
	CustomerRef     string
	SubscriptionRef string
	PriceRef        string
	PeriodEnd       *time.Time
}

// EventKind is the normalized billing event type. Provider-specific event
// names outside this vocabulary pass through unchanged and are ignored by
// consumers.
type EventKind string

const (
	EventSubscriptionUpdated EventKind = "subscription_updated"
	EventSubscriptionDeleted EventKind = "subscription_deleted"
	EventPaymentSucceeded    EventKind = "payment_succeeded"
	EventPaymentFailed       EventKind = "payment_failed"
)

// Event is a normalized webhook event from the payment processor.
type Event struct {
	Kind            EventKind
	ProviderEvent   string // original provider event name
	SubscriptionRef string // provider's subscription reference, if any
	Status          string // provider's subscription status vocabulary
	PeriodEnd       *time.Time
	OccurredAt      time.Time // provider timestamp, zero if absent
	Raw             map[string]any
}
