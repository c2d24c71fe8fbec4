package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/admute/backend/pkg/auth"
	"github.com/admute/backend/pkg/pg"
)

// UserStore implements auth.UserStore.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a user store over the pool.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func (s *UserStore) Create(ctx context.Context, user *auth.User) error {
	const query = `
		INSERT INTO users (id, username, email, password_hash, total_muted_time, total_ads_muted, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash,
		user.TotalMutedTime, user.TotalAdsMuted, user.CreatedAt,
	)
	if pg.IsDuplicateKey(err) {
		return auth.ErrUserAlreadyExists
	}
	return err
}

func (s *UserStore) ByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return s.scanOne(ctx, `WHERE id = $1`, id)
}

func (s *UserStore) ByUsername(ctx context.Context, username string) (*auth.User, error) {
	return s.scanOne(ctx, `WHERE lower(username) = lower($1)`, username)
}

func (s *UserStore) ByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.scanOne(ctx, `WHERE lower(email) = lower($1)`, email)
}

func (s *UserStore) scanOne(ctx context.Context, where string, arg any) (*auth.User, error) {
	query := `
		SELECT id, username, email, password_hash, total_muted_time, total_ads_muted, created_at
		FROM users ` + where

	var user auth.User
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.TotalMutedTime, &user.TotalAdsMuted, &user.CreatedAt,
	)
	if pg.IsNotFound(err) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
