package metrics

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Usage is a user's cumulative extension usage.
type Usage struct {
	TotalMutedTime int64 `json:"total_muted_time"`
	TotalAdsMuted  int64 `json:"total_ads_muted"`
}

// Store persists usage counters. Increments must be atomic so concurrent
// pings from several devices never lose updates.
type Store interface {
	// IncrementUsage adds the deltas to the user's counters. Returns
	// ErrUserNotFound for unknown users.
	IncrementUsage(ctx context.Context, userID uuid.UUID, mutedSeconds, adsMuted int64) (Usage, error)

	// Usage returns the user's current counters.
	Usage(ctx context.Context, userID uuid.UUID) (Usage, error)
}

// Service records and reports usage counters. Counters only grow; there is
// no reset operation.
type Service struct {
	store Store
	log   *slog.Logger
}

// Option configures the metrics service.
type Option func(*Service)

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService creates the metrics service. Panics on a nil store.
func NewService(store Store, opts ...Option) *Service {
	if store == nil {
		panic("metrics: Store is required")
	}
	s := &Service{store: store, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record adds one reporting interval's usage to the user's totals and
// returns the updated counters. Negative deltas are rejected; zero deltas
// are fine, clients ping on a timer whether or not anything was muted.
func (s *Service) Record(ctx context.Context, userID uuid.UUID, mutedSeconds, adsMuted int64) (Usage, error) {
	if mutedSeconds < 0 || adsMuted < 0 {
		return Usage{}, ErrNegativeDelta
	}
	usage, err := s.store.IncrementUsage(ctx, userID, mutedSeconds, adsMuted)
	if err != nil {
		return Usage{}, err
	}
	s.log.DebugContext(ctx, "usage recorded",
		slog.String("user_id", userID.String()),
		slog.Int64("muted_seconds", mutedSeconds),
		slog.Int64("ads_muted", adsMuted),
	)
	return usage, nil
}

// Get returns the user's cumulative usage.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (Usage, error) {
	return s.store.Usage(ctx, userID)
}
