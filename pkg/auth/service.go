package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// Service provides registration, password login and bearer token renewal.
type Service struct {
	store      UserStore
	signingKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	bcryptCost int
	log        *slog.Logger
}

// Option configures the auth service.
type Option func(*Service)

// WithAccessTTL overrides the access token lifetime.
func WithAccessTTL(ttl time.Duration) Option {
	return func(s *Service) { s.accessTTL = ttl }
}

// WithRefreshTTL overrides the refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) Option {
	return func(s *Service) { s.refreshTTL = ttl }
}

// WithBcryptCost overrides the bcrypt cost used for new password hashes.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService creates an auth service.
// Panics on nil store or empty signing key to fail fast during initialization.
func NewService(store UserStore, signingKey []byte, opts ...Option) *Service {
	if store == nil {
		panic("auth: UserStore is required")
	}
	if len(signingKey) == 0 {
		panic("auth: signing key is required")
	}

	s := &Service{
		store:      store,
		signingKey: signingKey,
		accessTTL:  15 * time.Minute,
		refreshTTL: 30 * 24 * time.Hour,
		bcryptCost: bcrypt.DefaultCost,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a new user with a bcrypt password hash.
// Username and email are unique across all users.
func (s *Service) Register(ctx context.Context, username, email, password string) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if username == "" || email == "" {
		return nil, ErrInvalidInput
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, errors.Join(ErrInvalidInput, err)
	}
	if len(password) < minPasswordLength {
		return nil, ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "user registered", slog.String("user_id", user.ID.String()))
	return user, nil
}

// Login verifies the password and issues a fresh token pair.
// Lookup failures and hash mismatches collapse into ErrInvalidCredentials
// so the response does not reveal which usernames exist.
func (s *Service) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	user, err := s.store.ByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueTokenPair(user.ID)
}

// Refresh exchanges a valid refresh token for a new token pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	userID, err := s.parseToken(refreshToken, tokenKindRefresh)
	if err != nil {
		return nil, err
	}

	// The user must still exist; tokens outliving deleted accounts are refused.
	if _, err := s.store.ByID(ctx, userID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	return s.issueTokenPair(userID)
}

// VerifyAccessToken validates an access token and returns the user id it names.
func (s *Service) VerifyAccessToken(tokenString string) (uuid.UUID, error) {
	return s.parseToken(tokenString, tokenKindAccess)
}

// UserByID returns the user with the given id.
func (s *Service) UserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.store.ByID(ctx, id)
}
