package device

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/admute/backend/pkg/auth"
	"github.com/admute/backend/pkg/subscription"
)

// UserReader resolves users; satisfied by auth.Service.
type UserReader interface {
	UserByID(ctx context.Context, id uuid.UUID) (*auth.User, error)
}

// SubscriptionReader resolves a user's subscription; satisfied by
// subscription.Service.
type SubscriptionReader interface {
	Get(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error)
}

// Service enforces the device quota. It mutates the device set only and
// treats the subscription as read-only committed state.
type Service struct {
	store Store
	users UserReader
	subs  SubscriptionReader
	log   *slog.Logger

	locks userLocks
}

// Option configures the device service.
type Option func(*Service)

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService creates the device service. Panics on nil dependencies.
func NewService(store Store, users UserReader, subs SubscriptionReader, opts ...Option) *Service {
	if store == nil {
		panic("device: Store is required")
	}
	if users == nil {
		panic("device: UserReader is required")
	}
	if subs == nil {
		panic("device: SubscriptionReader is required")
	}

	s := &Service{
		store: store,
		users: users,
		subs:  subs,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register admits a new device if the user's plan still has quota.
// Preconditions are checked in a fixed order so callers always see the
// first failing one: user exists, subscription active, id present, id
// unclaimed, quota available. The duplicate check, count and insert run
// under the user's lock so two concurrent registrations cannot both pass
// the count and push the user over the limit.
func (s *Service) Register(ctx context.Context, userID uuid.UUID, deviceID, name string) (*Device, error) {
	if _, err := s.users.UserByID(ctx, userID); err != nil {
		return nil, err
	}

	sub, err := s.subs.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, subscription.ErrNotFound) {
			return nil, ErrNoActiveSubscription
		}
		return nil, err
	}
	// Strictly current billing: a past_due subscription keeps its existing
	// devices working but admits no new ones until payment recovers.
	if !sub.IsActive() {
		return nil, ErrNoActiveSubscription
	}

	if deviceID == "" {
		return nil, ErrMissingDeviceID
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	if _, err := s.store.ByDeviceID(ctx, deviceID); err == nil {
		return nil, ErrAlreadyRegistered
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	count, err := s.store.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if count >= sub.DeviceLimit {
		return nil, ErrQuotaExceeded
	}

	if name == "" {
		name = DefaultName
	}
	now := time.Now().UTC()
	d := &Device{
		UserID:     userID,
		DeviceID:   deviceID,
		Name:       name,
		LastActive: now,
		CreatedAt:  now,
	}
	if err := s.store.Create(ctx, d); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "device registered",
		slog.String("user_id", userID.String()),
		slog.String("device_id", deviceID),
		slog.Int("count", count+1),
		slog.Int("limit", sub.DeviceLimit),
	)
	return d, nil
}

// List returns the user's devices and the current device limit. The limit
// is zero without a subscription; listing never performs a quota check.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]Device, int, error) {
	devices, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	limit := 0
	sub, err := s.subs.Get(ctx, userID)
	switch {
	case err == nil:
		limit = sub.DeviceLimit
	case errors.Is(err, subscription.ErrNotFound):
	default:
		return nil, 0, err
	}
	return devices, limit, nil
}

// Remove deletes the user's device, freeing one unit of quota immediately.
// Returns ErrNotFound when the device does not exist for this user, also
// when it exists for somebody else.
func (s *Service) Remove(ctx context.Context, userID uuid.UUID, deviceID string) error {
	if deviceID == "" {
		return ErrMissingDeviceID
	}
	if err := s.store.Delete(ctx, userID, deviceID); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "device removed",
		slog.String("user_id", userID.String()),
		slog.String("device_id", deviceID),
	)
	return nil
}

// TouchActivity stamps the device's last_active. Same ownership scoping as
// Remove; never affects quota.
func (s *Service) TouchActivity(ctx context.Context, userID uuid.UUID, deviceID string) error {
	if deviceID == "" {
		return ErrMissingDeviceID
	}
	return s.store.SetLastActive(ctx, userID, deviceID, time.Now().UTC())
}

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
