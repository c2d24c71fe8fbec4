package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/admute/backend/pkg/metrics"
	"github.com/admute/backend/pkg/pg"
)

// MetricsStore implements metrics.Store against the counters on the users
// table. The increment happens in SQL so concurrent reports from several
// devices serialize on the row instead of losing updates.
type MetricsStore struct {
	pool *pgxpool.Pool
}

// NewMetricsStore creates a usage counter store over the pool.
func NewMetricsStore(pool *pgxpool.Pool) *MetricsStore {
	return &MetricsStore{pool: pool}
}

func (s *MetricsStore) IncrementUsage(ctx context.Context, userID uuid.UUID, mutedSeconds, adsMuted int64) (metrics.Usage, error) {
	const query = `
		UPDATE users
		SET total_muted_time = total_muted_time + $2,
			total_ads_muted = total_ads_muted + $3
		WHERE id = $1
		RETURNING total_muted_time, total_ads_muted`

	var usage metrics.Usage
	err := s.pool.QueryRow(ctx, query, userID, mutedSeconds, adsMuted).
		Scan(&usage.TotalMutedTime, &usage.TotalAdsMuted)
	if pg.IsNotFound(err) {
		return metrics.Usage{}, metrics.ErrUserNotFound
	}
	if err != nil {
		return metrics.Usage{}, err
	}
	return usage, nil
}

func (s *MetricsStore) Usage(ctx context.Context, userID uuid.UUID) (metrics.Usage, error) {
	const query = `SELECT total_muted_time, total_ads_muted FROM users WHERE id = $1`

	var usage metrics.Usage
	err := s.pool.QueryRow(ctx, query, userID).Scan(&usage.TotalMutedTime, &usage.TotalAdsMuted)
	if pg.IsNotFound(err) {
		return metrics.Usage{}, metrics.ErrUserNotFound
	}
	if err != nil {
		return metrics.Usage{}, err
	}
	return usage, nil
}
