package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestMemoryPendingCheckoutStore(t *testing.T) {
	t.Parallel()

	t.Run("put and consume", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryPendingCheckoutStore(0)
		t.Cleanup(store.Close)

		pending := &PendingCheckout{
			Token:     uuid.NewString(),
			UserID:    uuid.New(),
			Plan:      PlanPremiumMonthly,
			CreatedAt: time.Now().UTC(),
		}
		require.NoError(t, store.Put(context.Background(), pending, time.Minute))

		got, err := store.Consume(context.Background(), pending.Token)
		require.NoError(t, err)
		require.Equal(t, pending.UserID, got.UserID)
		require.Equal(t, PlanPremiumMonthly, got.Plan)
	})

	t.Run("consume is single use", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryPendingCheckoutStore(0)
		t.Cleanup(store.Close)

		pending := &PendingCheckout{Token: uuid.NewString(), UserID: uuid.New(), Plan: PlanBasicMonthly}
		require.NoError(t, store.Put(context.Background(), pending, time.Minute))

		_, err := store.Consume(context.Background(), pending.Token)
		require.NoError(t, err)

		_, err = store.Consume(context.Background(), pending.Token)
		require.ErrorIs(t, err, ErrCheckoutNotFound)
	})

	t.Run("expired entry is gone", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryPendingCheckoutStore(0)
		t.Cleanup(store.Close)

		pending := &PendingCheckout{Token: uuid.NewString(), UserID: uuid.New(), Plan: PlanBasicMonthly}
		require.NoError(t, store.Put(context.Background(), pending, time.Millisecond))

		time.Sleep(5 * time.Millisecond)

		_, err := store.Consume(context.Background(), pending.Token)
		require.ErrorIs(t, err, ErrCheckoutNotFound)
	})

	t.Run("unknown token", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryPendingCheckoutStore(0)
		t.Cleanup(store.Close)

		_, err := store.Consume(context.Background(), "missing")
		require.ErrorIs(t, err, ErrCheckoutNotFound)
	})

	t.Run("rejects empty token", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryPendingCheckoutStore(0)
		t.Cleanup(store.Close)

		require.ErrorIs(t, store.Put(context.Background(), &PendingCheckout{}, time.Minute), ErrMissingArgument)
		require.ErrorIs(t, store.Put(context.Background(), nil, time.Minute), ErrMissingArgument)
	})
}
