package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/admute/backend/pkg/pg"
	"github.com/admute/backend/pkg/subscription"
)

// SubscriptionStore implements subscription.Store. The users(id) foreign
// key plus the primary key on user_id enforce one subscription per user;
// subscription_ref carries its own unique constraint for webhook lookup.
type SubscriptionStore struct {
	pool *pgxpool.Pool
}

// NewSubscriptionStore creates a subscription store over the pool.
func NewSubscriptionStore(pool *pgxpool.Pool) *SubscriptionStore {
	return &SubscriptionStore{pool: pool}
}

const subscriptionColumns = `
	user_id, customer_ref, subscription_ref, status, plan, device_limit,
	current_period_end, last_event_at, created_at, updated_at`

func (s *SubscriptionStore) ByUserID(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1`
	return s.scanOne(ctx, query, userID)
}

func (s *SubscriptionStore) BySubscriptionRef(ctx context.Context, ref string) (*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE subscription_ref = $1`
	return s.scanOne(ctx, query, ref)
}

func (s *SubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	const query = `
		INSERT INTO subscriptions (user_id, customer_ref, subscription_ref, status, plan,
			device_limit, current_period_end, last_event_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.pool.Exec(ctx, query,
		sub.UserID, sub.CustomerRef, sub.SubscriptionRef, sub.Status, sub.Plan,
		sub.DeviceLimit, sub.CurrentPeriodEnd, sub.LastEventAt, sub.CreatedAt, sub.UpdatedAt,
	)
	if pg.IsDuplicateKey(err) {
		return subscription.ErrAlreadyExists
	}
	return err
}

func (s *SubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	const query = `
		UPDATE subscriptions
		SET customer_ref = $2, subscription_ref = $3, status = $4, plan = $5,
			device_limit = $6, current_period_end = $7, last_event_at = $8, updated_at = $9
		WHERE user_id = $1`

	tag, err := s.pool.Exec(ctx, query,
		sub.UserID, sub.CustomerRef, sub.SubscriptionRef, sub.Status, sub.Plan,
		sub.DeviceLimit, sub.CurrentPeriodEnd, sub.LastEventAt, sub.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return subscription.ErrNotFound
	}
	return nil
}

func (s *SubscriptionStore) scanOne(ctx context.Context, query string, arg any) (*subscription.Subscription, error) {
	var sub subscription.Subscription
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&sub.UserID, &sub.CustomerRef, &sub.SubscriptionRef, &sub.Status, &sub.Plan,
		&sub.DeviceLimit, &sub.CurrentPeriodEnd, &sub.LastEventAt, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if pg.IsNotFound(err) {
		return nil, subscription.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
