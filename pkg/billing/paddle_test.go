package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admute/backend/pkg/billing"
)

func TestParsePaddleEvent(t *testing.T) {
	t.Parallel()

	t.Run("subscription canceled", func(t *testing.T) {
		t.Parallel()

		payload := []byte(`{
			"event_id": "evt_1",
			"event_type": "subscription.canceled",
			"occurred_at": "2026-02-01T10:00:00Z",
			"data": {
				"id": "sub_123",
				"status": "canceled",
				"current_billing_period": {"starts_at": "2026-01-01T00:00:00Z", "ends_at": "2026-02-01T00:00:00Z"}
			}
		}`)

		event, err := billing.ParsePaddleEvent(payload)
		require.NoError(t, err)
		assert.Equal(t, billing.EventSubscriptionDeleted, event.Kind)
		assert.Equal(t, "subscription.canceled", event.ProviderEvent)
		assert.Equal(t, "sub_123", event.SubscriptionRef)
		assert.Equal(t, "canceled", event.Status)
		require.NotNil(t, event.PeriodEnd)
		assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), event.PeriodEnd.UTC())
		assert.Equal(t, time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC), event.OccurredAt.UTC())
	})

	t.Run("transaction payment failed resolves subscription ref", func(t *testing.T) {
		t.Parallel()

		payload := []byte(`{
			"event_type": "transaction.payment_failed",
			"occurred_at": "2026-02-01T10:00:00Z",
			"data": {
				"id": "txn_9",
				"subscription_id": "sub_123",
				"status": "past_due"
			}
		}`)

		event, err := billing.ParsePaddleEvent(payload)
		require.NoError(t, err)
		assert.Equal(t, billing.EventPaymentFailed, event.Kind)
		assert.Equal(t, "sub_123", event.SubscriptionRef)
		assert.Nil(t, event.PeriodEnd)
	})

	t.Run("payment succeeded carries billing period end", func(t *testing.T) {
		t.Parallel()

		payload := []byte(`{
			"event_type": "transaction.payment_succeeded",
			"occurred_at": "2026-02-01T10:00:00Z",
			"data": {
				"subscription_id": "sub_123",
				"billing_period": {"ends_at": "2026-03-01T00:00:00Z"}
			}
		}`)

		event, err := billing.ParsePaddleEvent(payload)
		require.NoError(t, err)
		assert.Equal(t, billing.EventPaymentSucceeded, event.Kind)
		require.NotNil(t, event.PeriodEnd)
		assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), event.PeriodEnd.UTC())
	})

	t.Run("unknown event kind passes through", func(t *testing.T) {
		t.Parallel()

		payload := []byte(`{"event_type": "address.created", "data": {}}`)

		event, err := billing.ParsePaddleEvent(payload)
		require.NoError(t, err)
		assert.Equal(t, billing.EventKind("address.created"), event.Kind)
		assert.Empty(t, event.SubscriptionRef)
	})

	t.Run("malformed payload", func(t *testing.T) {
		t.Parallel()

		_, err := billing.ParsePaddleEvent([]byte(`{not-json`))
		assert.ErrorIs(t, err, billing.ErrMalformedPayload)

		_, err = billing.ParsePaddleEvent([]byte(`{"data": {}}`))
		assert.ErrorIs(t, err, billing.ErrMalformedPayload)
	})
}
