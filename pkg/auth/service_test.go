package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/admute/backend/pkg/auth"
)

func newTestService(t *testing.T, opts ...auth.Option) (*auth.Service, *auth.MemoryUserStore) {
	t.Helper()
	store := auth.NewMemoryUserStore()
	opts = append([]auth.Option{auth.WithBcryptCost(bcrypt.MinCost)}, opts...)
	return auth.NewService(store, []byte("test-signing-key-0123456789abcdef"), opts...), store
}

func TestRegister(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("creates user with hashed password", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)
		user, err := svc.Register(ctx, "alice", "alice@example.com", "sup3rsecret")
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
		assert.Equal(t, "alice@example.com", user.Email)
		assert.NotEqual(t, []byte("sup3rsecret"), user.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword(user.PasswordHash, []byte("sup3rsecret")))
	})

	t.Run("duplicate username rejected", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)
		_, err := svc.Register(ctx, "bob", "bob@example.com", "sup3rsecret")
		require.NoError(t, err)

		_, err = svc.Register(ctx, "bob", "other@example.com", "sup3rsecret")
		assert.ErrorIs(t, err, auth.ErrUserAlreadyExists)
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)
		_, err := svc.Register(ctx, "carol", "carol@example.com", "sup3rsecret")
		require.NoError(t, err)

		_, err = svc.Register(ctx, "carol2", "carol@example.com", "sup3rsecret")
		assert.ErrorIs(t, err, auth.ErrUserAlreadyExists)
	})

	t.Run("invalid input", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)

		_, err := svc.Register(ctx, "", "x@example.com", "sup3rsecret")
		assert.ErrorIs(t, err, auth.ErrInvalidInput)

		_, err = svc.Register(ctx, "dave", "not-an-email", "sup3rsecret")
		assert.ErrorIs(t, err, auth.ErrInvalidInput)

		_, err = svc.Register(ctx, "dave", "dave@example.com", "short")
		assert.ErrorIs(t, err, auth.ErrInvalidInput)
	})
}

func TestLogin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("valid credentials issue token pair", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)
		user, err := svc.Register(ctx, "erin", "erin@example.com", "sup3rsecret")
		require.NoError(t, err)

		pair, err := svc.Login(ctx, "erin", "sup3rsecret")
		require.NoError(t, err)
		require.NotEmpty(t, pair.AccessToken)
		require.NotEmpty(t, pair.RefreshToken)

		userID, err := svc.VerifyAccessToken(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID, userID)
	})

	t.Run("wrong password", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)
		_, err := svc.Register(ctx, "frank", "frank@example.com", "sup3rsecret")
		require.NoError(t, err)

		_, err = svc.Login(ctx, "frank", "wrong-password")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unknown user reported as invalid credentials", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)
		_, err := svc.Login(ctx, "ghost", "whatever123")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("refresh token renews pair", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)
		user, err := svc.Register(ctx, "grace", "grace@example.com", "sup3rsecret")
		require.NoError(t, err)

		pair, err := svc.Login(ctx, "grace", "sup3rsecret")
		require.NoError(t, err)

		renewed, err := svc.Refresh(ctx, pair.RefreshToken)
		require.NoError(t, err)

		userID, err := svc.VerifyAccessToken(renewed.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID, userID)
	})

	t.Run("access token is not accepted as refresh token", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)
		_, err := svc.Register(ctx, "heidi", "heidi@example.com", "sup3rsecret")
		require.NoError(t, err)

		pair, err := svc.Login(ctx, "heidi", "sup3rsecret")
		require.NoError(t, err)

		_, err = svc.Refresh(ctx, pair.AccessToken)
		assert.ErrorIs(t, err, auth.ErrNotRefreshToken)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t, auth.WithRefreshTTL(-time.Minute))
		_, err := svc.Register(ctx, "ivan", "ivan@example.com", "sup3rsecret")
		require.NoError(t, err)

		pair, err := svc.Login(ctx, "ivan", "sup3rsecret")
		require.NoError(t, err)

		_, err = svc.Refresh(ctx, pair.RefreshToken)
		assert.ErrorIs(t, err, auth.ErrExpiredToken)
	})
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newTestService(t)
	user, err := svc.Register(ctx, "judy", "judy@example.com", "sup3rsecret")
	require.NoError(t, err)
	pair, err := svc.Login(ctx, "judy", "sup3rsecret")
	require.NoError(t, err)

	handler := auth.Middleware(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.UserIDFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, user.ID, id)
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("valid bearer token", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing header", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not.a.jwt")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
