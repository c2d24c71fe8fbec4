package device_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/admute/backend/pkg/auth"
	"github.com/admute/backend/pkg/device"
	"github.com/admute/backend/pkg/subscription"
)

type stubUsers struct {
	users map[uuid.UUID]*auth.User
}

func (s *stubUsers) UserByID(_ context.Context, id uuid.UUID) (*auth.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return u, nil
}

type stubSubs struct {
	subs map[uuid.UUID]*subscription.Subscription
}

func (s *stubSubs) Get(_ context.Context, userID uuid.UUID) (*subscription.Subscription, error) {
	sub, ok := s.subs[userID]
	if !ok {
		return nil, subscription.ErrNotFound
	}
	return sub, nil
}

type fixture struct {
	svc    *device.Service
	store  *device.MemoryStore
	users  *stubUsers
	subs   *stubSubs
	userID uuid.UUID
}

func newFixture(t *testing.T, status subscription.Status, deviceLimit int) *fixture {
	t.Helper()

	userID := uuid.New()
	users := &stubUsers{users: map[uuid.UUID]*auth.User{
		userID: {ID: userID, Username: "tester", Email: "tester@example.com"},
	}}
	subs := &stubSubs{subs: map[uuid.UUID]*subscription.Subscription{
		userID: {
			UserID:      userID,
			Status:      status,
			Plan:        subscription.PlanBasicMonthly,
			DeviceLimit: deviceLimit,
		},
	}}
	store := device.NewMemoryStore()
	svc := device.NewService(store, users, subs,
		device.WithLogger(slog.New(slog.DiscardHandler)),
	)
	return &fixture{svc: svc, store: store, users: users, subs: subs, userID: userID}
}

func TestService_Register(t *testing.T) {
	t.Parallel()

	t.Run("registers within quota", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, subscription.StatusActive, 2)

		d, err := f.svc.Register(context.Background(), f.userID, "dev-1", "Work Laptop")
		require.NoError(t, err)
		require.Equal(t, "Work Laptop", d.Name)
		require.Equal(t, f.userID, d.UserID)
		require.False(t, d.LastActive.IsZero())
	})

	t.Run("defaults the display name", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, subscription.StatusActive, 1)

		d, err := f.svc.Register(context.Background(), f.userID, "dev-1", "")
		require.NoError(t, err)
		require.Equal(t, device.DefaultName, d.Name)
	})

	t.Run("unknown user", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, subscription.StatusActive, 1)

		_, err := f.svc.Register(context.Background(), uuid.New(), "dev-1", "")
		require.ErrorIs(t, err, auth.ErrUserNotFound)
	})

	t.Run("no subscription", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, subscription.StatusActive, 1)
		delete(f.subs.subs, f.userID)

		_, err := f.svc.Register(context.Background(), f.userID, "dev-1", "")
		require.ErrorIs(t, err, device.ErrNoActiveSubscription)
	})

	t.Run("past_due subscription cannot register", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, subscription.StatusPastDue, 5)

		_, err := f.svc.Register(context.Background(), f.userID, "dev-1", "")
		require.ErrorIs(t, err, device.ErrNoActiveSubscription)
	})

	t.Run("cancelled subscription cannot register", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, subscription.StatusCancelled, 5)

		_, err := f.svc.Register(context.Background(), f.userID, "dev-1", "")
		require.ErrorIs(t, err, device.ErrNoActiveSubscription)
	})

	t.Run("missing device id", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, subscription.StatusActive, 1)

		_, err := f.svc.Register(context.Background(), f.userID, "", "")
		require.ErrorIs(t, err, device.ErrMissingDeviceID)
	})

	t.Run("device id claimed by another user", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, subscription.StatusActive, 5)

		otherID := uuid.New()
		f.users.users[otherID] = &auth.User{ID: otherID, Username: "other", Email: "other@example.com"}
		f.subs.subs[otherID] = &subscription.Subscription{
			UserID:      otherID,
			Status:      subscription.StatusActive,
			DeviceLimit: 5,
		}

		_, err := f.svc.Register(context.Background(), otherID, "dev-1", "")
		require.NoError(t, err)

		_, err = f.svc.Register(context.Background(), f.userID, "dev-1", "")
		require.ErrorIs(t, err, device.ErrAlreadyRegistered)
	})

	t.Run("quota exceeded on basic plan", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, subscription.StatusActive, 1)

		_, err := f.svc.Register(context.Background(), f.userID, "dev-1", "")
		require.NoError(t, err)

		_, err = f.svc.Register(context.Background(), f.userID, "dev-2", "")
		require.ErrorIs(t, err, device.ErrQuotaExceeded)
	})

	t.Run("removal frees exactly one registration", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, subscription.StatusActive, 1)
		ctx := context.Background()

		_, err := f.svc.Register(ctx, f.userID, "dev-1", "")
		require.NoError(t, err)

		require.NoError(t, f.svc.Remove(ctx, f.userID, "dev-1"))

		_, err = f.svc.Register(ctx, f.userID, "dev-2", "")
		require.NoError(t, err)

		_, err = f.svc.Register(ctx, f.userID, "dev-3", "")
		require.ErrorIs(t, err, device.ErrQuotaExceeded)
	})

	t.Run("concurrent registrations never exceed quota", func(t *testing.T) {
		t.Parallel()

		const limit = 5
		f := newFixture(t, subscription.StatusActive, limit)
		ctx := context.Background()

		var wg sync.WaitGroup
		results := make(chan error, limit*3)
		for i := 0; i < limit*3; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				_, err := f.svc.Register(ctx, f.userID, uuid.NewString(), "")
				results <- err
			}(i)
		}
		wg.Wait()
		close(results)

		succeeded := 0
		for err := range results {
			if err == nil {
				succeeded++
			} else {
				require.ErrorIs(t, err, device.ErrQuotaExceeded)
			}
		}
		require.Equal(t, limit, succeeded)

		count, err := f.store.CountByUser(ctx, f.userID)
		require.NoError(t, err)
		require.Equal(t, limit, count)
	})
}

func TestService_List(t *testing.T) {
	t.Parallel()

	t.Run("devices with the plan limit", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, subscription.StatusActive, 5)
		ctx := context.Background()

		_, err := f.svc.Register(ctx, f.userID, "dev-1", "One")
		require.NoError(t, err)
		_, err = f.svc.Register(ctx, f.userID, "dev-2", "Two")
		require.NoError(t, err)

		devices, limit, err := f.svc.List(ctx, f.userID)
		require.NoError(t, err)
		require.Len(t, devices, 2)
		require.Equal(t, 5, limit)
	})

	t.Run("zero limit without subscription", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, subscription.StatusActive, 5)
		delete(f.subs.subs, f.userID)

		devices, limit, err := f.svc.List(context.Background(), f.userID)
		require.NoError(t, err)
		require.Empty(t, devices)
		require.Zero(t, limit)
	})
}

func TestService_Remove(t *testing.T) {
	t.Parallel()

	t.Run("cannot remove another user's device", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, subscription.StatusActive, 5)
		ctx := context.Background()

		_, err := f.svc.Register(ctx, f.userID, "dev-1", "")
		require.NoError(t, err)

		err = f.svc.Remove(ctx, uuid.New(), "dev-1")
		require.ErrorIs(t, err, device.ErrNotFound)
	})

	t.Run("unknown device", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, subscription.StatusActive, 5)

		err := f.svc.Remove(context.Background(), f.userID, "dev-missing")
		require.ErrorIs(t, err, device.ErrNotFound)
	})
}

func TestService_TouchActivity(t *testing.T) {
	t.Parallel()

	t.Run("advances last_active", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, subscription.StatusActive, 5)
		ctx := context.Background()

		registered, err := f.svc.Register(ctx, f.userID, "dev-1", "")
		require.NoError(t, err)

		require.NoError(t, f.svc.TouchActivity(ctx, f.userID, "dev-1"))

		current, err := f.store.ByDeviceID(ctx, "dev-1")
		require.NoError(t, err)
		require.False(t, current.LastActive.Before(registered.LastActive))
	})

	t.Run("scoped to owner", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, subscription.StatusActive, 5)
		ctx := context.Background()

		_, err := f.svc.Register(ctx, f.userID, "dev-1", "")
		require.NoError(t, err)

		err = f.svc.TouchActivity(ctx, uuid.New(), "dev-1")
		require.ErrorIs(t, err, device.ErrNotFound)
	})
}
