package subscription

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/admute/backend/pkg/billing"
)

const defaultCheckoutTTL = 30 * time.Minute

// Service owns the subscription lifecycle. It is the single writer of
// subscription status: direct actions (subscribe/cancel), hosted checkout
// completion and webhook events all commit through it, serialized per user.
type Service struct {
	gateway    billing.Gateway
	store      Store
	pending    PendingCheckoutStore
	catalog    Catalog
	successURL string
	ttl        time.Duration
	log        *slog.Logger

	locks userLocks
}

// Option configures the subscription service.
type Option func(*Service)

// WithCheckoutTTL overrides how long a pending checkout token stays valid.
func WithCheckoutTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithSuccessURL sets the URL the hosted checkout redirects to on success.
func WithSuccessURL(url string) Option {
	return func(s *Service) { s.successURL = url }
}

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService creates the subscription service.
// Panics on nil dependencies and validates the catalog so misconfiguration
// stops the process at startup, not mid-request.
func NewService(gateway billing.Gateway, store Store, pending PendingCheckoutStore, catalog Catalog, opts ...Option) (*Service, error) {
	if gateway == nil {
		panic("subscription: billing.Gateway is required")
	}
	if store == nil {
		panic("subscription: Store is required")
	}
	if pending == nil {
		panic("subscription: PendingCheckoutStore is required")
	}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		gateway: gateway,
		store:   store,
		pending: pending,
		catalog: catalog,
		ttl:     defaultCheckoutTTL,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Subscribe creates a subscription with a payment method the client already
// collected. The local row is created only after the provider confirms the
// subscription, so no pending local state ever leaks to callers.
func (s *Service) Subscribe(ctx context.Context, userID uuid.UUID, email string, plan Plan, methodRef string) (*Subscription, error) {
	spec, err := s.catalog.Spec(plan)
	if err != nil {
		return nil, err
	}
	if methodRef == "" {
		return nil, ErrPaymentMethodRequired
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	if _, err := s.store.ByUserID(ctx, userID); err == nil {
		return nil, ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	customerRef, err := s.gateway.CreateCustomer(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.gateway.AttachPaymentMethod(ctx, customerRef, methodRef); err != nil {
		return nil, err
	}
	result, err := s.gateway.CreateSubscription(ctx, customerRef, spec.PriceRef, methodRef)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sub := &Subscription{
		UserID:           userID,
		CustomerRef:      customerRef,
		SubscriptionRef:  result.SubscriptionRef,
		Status:           StatusActive,
		Plan:             plan,
		DeviceLimit:      spec.DeviceLimit,
		CurrentPeriodEnd: result.PeriodEnd,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if status, ok := statusFromProvider(result.Status); ok {
		sub.Status = status
	}

	if err := s.store.Create(ctx, sub); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "subscription created",
		slog.String("user_id", userID.String()),
		slog.String("plan", string(plan)),
		slog.String("subscription_ref", sub.SubscriptionRef),
	)
	return sub, nil
}

// Get returns the user's subscription row, whatever its status.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	return s.store.ByUserID(ctx, userID)
}

// Cancel cancels the subscription at the provider, then marks the local row
// cancelled with the period end the provider reports. The row stays usable
// until that period end; access policy past it is the caller's concern.
// Local state is untouched when the gateway call fails.
func (s *Service) Cancel(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	sub, err := s.store.ByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	result, err := s.gateway.CancelSubscription(ctx, sub.SubscriptionRef)
	if err != nil {
		return nil, err
	}

	next, err := Transition(sub.Status, StatusCancelled)
	if err != nil {
		return nil, err
	}
	sub.Status = next
	if result.PeriodEnd != nil {
		sub.CurrentPeriodEnd = result.PeriodEnd
	}
	sub.UpdatedAt = time.Now().UTC()

	if err := s.store.Update(ctx, sub); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "subscription cancelled",
		slog.String("user_id", userID.String()),
		slog.String("subscription_ref", sub.SubscriptionRef),
	)
	return sub, nil
}

// StartCheckout opens a hosted checkout session for the plan and records
// the pending entry keyed by a fresh single-use success token.
func (s *Service) StartCheckout(ctx context.Context, userID uuid.UUID, plan Plan) (*billing.CheckoutSession, error) {
	spec, err := s.catalog.Spec(plan)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.ByUserID(ctx, userID); err == nil {
		return nil, ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	pending := &PendingCheckout{
		Token:     uuid.NewString(),
		UserID:    userID,
		Plan:      plan,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.pending.Put(ctx, pending, s.ttl); err != nil {
		return nil, err
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, billing.CheckoutRequest{
		UserID:       userID.String(),
		PriceRef:     spec.PriceRef,
		SuccessToken: pending.Token,
		SuccessURL:   s.successURL,
	})
	if err != nil {
		// Best effort: the entry expires by TTL anyway.
		if _, consumeErr := s.pending.Consume(ctx, pending.Token); consumeErr != nil && !errors.Is(consumeErr, ErrCheckoutNotFound) {
			s.log.WarnContext(ctx, "failed to drop pending checkout", slog.Any("error", consumeErr))
		}
		return nil, err
	}
	return session, nil
}

// CompleteCheckout turns a finished hosted checkout into the subscription
// row. The success token is consumed atomically up front; if row creation
// fails for a retryable reason the entry is restored so the redirect can be
// retried, while a successful creation leaves the token spent forever.
func (s *Service) CompleteCheckout(ctx context.Context, sessionRef, successToken string) (*Subscription, error) {
	if sessionRef == "" || successToken == "" {
		return nil, ErrMissingArgument
	}

	pending, err := s.pending.Consume(ctx, successToken)
	if err != nil {
		return nil, err
	}

	spec, err := s.catalog.Spec(pending.Plan)
	if err != nil {
		// Catalog changed between start and completion; nothing to retry.
		return nil, err
	}

	unlock := s.locks.lock(pending.UserID)
	defer unlock()

	result, err := s.gateway.RetrieveCheckoutSession(ctx, sessionRef)
	if err != nil {
		s.restorePending(ctx, pending)
		return nil, err
	}

	now := time.Now().UTC()
	sub := &Subscription{
		UserID:          pending.UserID,
		CustomerRef:     result.CustomerRef,
		SubscriptionRef: result.SubscriptionRef,
		Status:          StatusActive,
		// Plan and device limit come from the pending entry recorded at
		// session creation, never from client or provider input.
		Plan:             pending.Plan,
		DeviceLimit:      spec.DeviceLimit,
		CurrentPeriodEnd: result.PeriodEnd,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.store.Create(ctx, sub); err != nil {
		if !errors.Is(err, ErrAlreadyExists) {
			s.restorePending(ctx, pending)
		}
		return nil, err
	}

	s.log.InfoContext(ctx, "checkout completed",
		slog.String("user_id", pending.UserID.String()),
		slog.String("plan", string(pending.Plan)),
		slog.String("subscription_ref", sub.SubscriptionRef),
	)
	return sub, nil
}

func (s *Service) restorePending(ctx context.Context, pending *PendingCheckout) {
	if err := s.pending.Put(ctx, pending, s.ttl); err != nil {
		s.log.ErrorContext(ctx, "failed to restore pending checkout",
			slog.String("user_id", pending.UserID.String()),
			slog.Any("error", err),
		)
	}
}

// HandleWebhook verifies and applies one provider event. Signature
// verification is the sole authentication for this entry point and happens
// before anything else. Unrecognized event kinds and events referencing
// unknown subscriptions are accepted and discarded; an error return means
// the provider should redeliver.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.VerifyAndParseEvent(ctx, payload, signature)
	if err != nil {
		return err
	}

	targetStatus, recognized := eventTargetStatus(event)
	if !recognized {
		s.log.InfoContext(ctx, "ignoring unhandled billing event",
			slog.String("event", event.ProviderEvent),
		)
		return nil
	}

	if event.SubscriptionRef == "" {
		s.log.InfoContext(ctx, "billing event without subscription reference",
			slog.String("event", event.ProviderEvent),
		)
		return nil
	}

	// Resolve the owning user first, then re-read under the user lock so
	// the read-modify-write cannot race a concurrent direct action.
	sub, err := s.store.BySubscriptionRef(ctx, event.SubscriptionRef)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// The provider does not know which rows exist locally.
			s.log.WarnContext(ctx, "billing event for unknown subscription",
				slog.String("event", event.ProviderEvent),
				slog.String("subscription_ref", event.SubscriptionRef),
			)
			return nil
		}
		return err
	}

	unlock := s.locks.lock(sub.UserID)
	defer unlock()

	sub, err = s.store.ByUserID(ctx, sub.UserID)
	if err != nil {
		return err
	}

	// Events may arrive out of order; the provider timestamp decides.
	// Events at or before the highest-seen stamp are stale, which also
	// covers redelivery of an already-applied event. Events without a
	// timestamp fall back to last-write-wins.
	if !event.OccurredAt.IsZero() && sub.LastEventAt != nil && !event.OccurredAt.After(*sub.LastEventAt) {
		s.log.InfoContext(ctx, "ignoring stale billing event",
			slog.String("event", event.ProviderEvent),
			slog.String("subscription_ref", event.SubscriptionRef),
			slog.Time("occurred_at", event.OccurredAt),
		)
		return nil
	}

	if targetStatus == "" {
		s.log.WarnContext(ctx, "keeping status for unmapped provider status",
			slog.String("event", event.ProviderEvent),
			slog.String("provider_status", event.Status),
		)
		targetStatus = sub.Status
	}

	next, err := Transition(sub.Status, targetStatus)
	if err != nil {
		// A forbidden move, e.g. anything trying to resurrect a cancelled
		// row, is discarded rather than bounced back for redelivery.
		s.log.WarnContext(ctx, "discarding billing event with forbidden transition",
			slog.String("event", event.ProviderEvent),
			slog.String("from", string(sub.Status)),
			slog.String("to", string(targetStatus)),
		)
		return nil
	}

	sub.Status = next
	if event.PeriodEnd != nil {
		sub.CurrentPeriodEnd = event.PeriodEnd
	}
	if !event.OccurredAt.IsZero() {
		occurredAt := event.OccurredAt
		sub.LastEventAt = &occurredAt
	}
	sub.UpdatedAt = time.Now().UTC()

	if err := s.store.Update(ctx, sub); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "billing event applied",
		slog.String("event", event.ProviderEvent),
		slog.String("subscription_ref", event.SubscriptionRef),
		slog.String("status", string(next)),
	)
	return nil
}

// eventTargetStatus resolves the local status an event forces. The second
// return is false for event kinds this system does not consume. An empty
// status with true means the event is consumed but leaves the status alone.
func eventTargetStatus(event *billing.Event) (Status, bool) {
	switch event.Kind {
	case billing.EventSubscriptionUpdated:
		// The processor is authoritative for its own status vocabulary.
		// Statuses outside the local one (e.g. paused) keep the current
		// status; the event's period end and timestamp still apply.
		if status, ok := statusFromProvider(event.Status); ok {
			return status, true
		}
		return "", true
	case billing.EventSubscriptionDeleted:
		return StatusCancelled, true
	case billing.EventPaymentSucceeded:
		return StatusActive, true
	case billing.EventPaymentFailed:
		return StatusPastDue, true
	default:
		return "", false
	}
}

// userLocks serializes all subscription writes for one user. Contention is
// always scoped to a single user's aggregate, so a plain keyed mutex is
// enough; entries are never evicted because the key space is bounded by
// the active user population.
type userLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func (u *userLocks) lock(userID uuid.UUID) (unlock func()) {
	u.mu.Lock()
	if u.locks == nil {
		u.locks = make(map[uuid.UUID]*sync.Mutex)
	}
	l, ok := u.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		u.locks[userID] = l
	}
	u.mu.Unlock()

	l.Lock()
	return l.Unlock
}
