package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// PaddleConfig holds configuration for the Paddle billing gateway.
type PaddleConfig struct {
	APIKey        string        `env:"PADDLE_API_KEY,required"`
	WebhookSecret string        `env:"PADDLE_WEBHOOK_SECRET,required"`
	Environment   string        `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
	CallTimeout   time.Duration `env:"PADDLE_CALL_TIMEOUT" envDefault:"15s"`
}

// PaddleSignatureHeader is the request header carrying the webhook signature.
const PaddleSignatureHeader = "Paddle-Signature"

// PaddleGateway implements Gateway on the Paddle Billing API.
type PaddleGateway struct {
	client      *paddle.SDK
	verifier    *paddle.WebhookVerifier
	callTimeout time.Duration
}

// NewPaddleGateway creates a Paddle-backed gateway.
func NewPaddleGateway(cfg PaddleConfig) (*PaddleGateway, error) {
	if cfg.APIKey == "" {
		return nil, errors.Join(ErrMissingArgument, errors.New("paddle API key is required"))
	}
	if cfg.WebhookSecret == "" {
		return nil, errors.Join(ErrMissingArgument, errors.New("paddle webhook secret is required"))
	}

	var client *paddle.SDK
	var err error
	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(cfg.APIKey)
	case "production", "":
		client, err = paddle.New(cfg.APIKey)
	default:
		return nil, fmt.Errorf("invalid paddle environment: %s", cfg.Environment)
	}
	if err != nil {
		return nil, errors.Join(ErrGateway, err)
	}

	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &PaddleGateway{
		client:      client,
		verifier:    paddle.NewWebhookVerifier(cfg.WebhookSecret),
		callTimeout: timeout,
	}, nil
}

// withTimeout bounds every outbound processor call so a stalled provider
// cannot hold a request open indefinitely.
func (p *PaddleGateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.callTimeout)
}

// CreateCustomer registers a Paddle customer for the email.
func (p *PaddleGateway) CreateCustomer(ctx context.Context, email string) (string, error) {
	if email == "" {
		return "", ErrMissingArgument
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	customer, err := p.client.CustomersClient.CreateCustomer(ctx, &paddle.CreateCustomerRequest{
		Email: email,
	})
	if err != nil {
		return "", errors.Join(ErrGateway, err)
	}
	return customer.ID, nil
}

// AttachPaymentMethod validates the payment method reference.
// Paddle stores payment methods through its hosted collection flows and
// charges the customer's saved default automatically, so there is no
// separate attach call; an invalid reference surfaces when the first
// transaction is charged.
func (p *PaddleGateway) AttachPaymentMethod(_ context.Context, customerRef, methodRef string) error {
	if customerRef == "" || methodRef == "" {
		return ErrMissingArgument
	}
	return nil
}

// CreateSubscription charges the customer for the price from the catalog,
// which opens the recurring subscription on the Paddle side.
func (p *PaddleGateway) CreateSubscription(ctx context.Context, customerRef, priceRef, methodRef string) (*SubscriptionResult, error) {
	if customerRef == "" || priceRef == "" {
		return nil, ErrMissingArgument
	}
	if methodRef == "" {
		return nil, ErrMissingArgument
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  priceRef,
		Quantity: 1,
	})
	txn, err := p.client.TransactionsClient.CreateTransaction(ctx, &paddle.CreateTransactionRequest{
		Items:      []paddle.CreateTransactionItems{*item},
		CustomerID: paddle.PtrTo(customerRef),
		CustomData: paddle.CustomData{
			"payment_method": methodRef,
		},
	})
	if err != nil {
		return nil, errors.Join(ErrGateway, err)
	}

	if txn.SubscriptionID == nil || *txn.SubscriptionID == "" {
		return nil, errors.Join(ErrGateway, errors.New("no subscription opened for transaction "+txn.ID))
	}
	return p.subscriptionResult(ctx, *txn.SubscriptionID)
}

// CancelSubscription schedules cancellation at the end of the current
// billing period and returns the final state.
func (p *PaddleGateway) CancelSubscription(ctx context.Context, subscriptionRef string) (*SubscriptionResult, error) {
	if subscriptionRef == "" {
		return nil, ErrMissingArgument
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	sub, err := p.client.SubscriptionsClient.CancelSubscription(ctx, &paddle.CancelSubscriptionRequest{
		SubscriptionID: subscriptionRef,
		EffectiveFrom:  paddle.PtrTo(paddle.EffectiveFromNextBillingPeriod),
	})
	if err != nil {
		return nil, errors.Join(ErrGateway, err)
	}
	return paddleSubscriptionResult(sub), nil
}

// CreateCheckoutSession creates a Paddle transaction with hosted checkout.
// The success token travels in both the custom data and the success URL so
// the completion callback can be correlated with the initiating attempt.
func (p *PaddleGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if req.UserID == "" || req.PriceRef == "" || req.SuccessToken == "" {
		return nil, ErrMissingArgument
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  req.PriceRef,
		Quantity: 1,
	})
	txnReq := &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{
			"user_id":       req.UserID,
			"success_token": req.SuccessToken,
		},
	}
	if req.SuccessURL != "" {
		txnReq.Checkout = &paddle.TransactionCheckout{
			URL: paddle.PtrTo(req.SuccessURL + "?session_ref={transaction_id}&token=" + req.SuccessToken),
		}
	}

	txn, err := p.client.TransactionsClient.CreateTransaction(ctx, txnReq)
	if err != nil {
		return nil, errors.Join(ErrGateway, err)
	}
	if txn.Checkout == nil || txn.Checkout.URL == nil || *txn.Checkout.URL == "" {
		return nil, errors.Join(ErrGateway, errors.New("no checkout URL returned"))
	}

	return &CheckoutSession{
		SessionRef:  txn.ID,
		RedirectURL: *txn.Checkout.URL,
	}, nil
}

// RetrieveCheckoutSession loads the transaction behind a completed checkout.
func (p *PaddleGateway) RetrieveCheckoutSession(ctx context.Context, sessionRef string) (*CheckoutResult, error) {
	if sessionRef == "" {
		return nil, ErrMissingArgument
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	txn, err := p.client.TransactionsClient.GetTransaction(ctx, &paddle.GetTransactionRequest{
		TransactionID: sessionRef,
	})
	if err != nil {
		return nil, errors.Join(ErrGateway, err)
	}

	result := &CheckoutResult{}
	if txn.CustomerID != nil {
		result.CustomerRef = *txn.CustomerID
	}
	if txn.SubscriptionID != nil {
		result.SubscriptionRef = *txn.SubscriptionID
	}
	if len(txn.Items) > 0 {
		result.PriceRef = txn.Items[0].Price.ID
	}
	if result.SubscriptionRef != "" {
		if sub, err := p.subscriptionResult(ctx, result.SubscriptionRef); err == nil {
			result.PeriodEnd = sub.PeriodEnd
		}
	}
	return result, nil
}

// VerifyAndParseEvent authenticates the payload with the Paddle webhook
// verifier and normalizes the event.
func (p *PaddleGateway) VerifyAndParseEvent(ctx context.Context, payload []byte, signature string) (*Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Join(ErrMalformedPayload, err)
	}
	req.Header.Set(PaddleSignatureHeader, signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, errors.Join(ErrInvalidSignature, err)
	}
	if !valid {
		return nil, ErrInvalidSignature
	}

	return ParsePaddleEvent(payload)
}

// ParsePaddleEvent normalizes a verified Paddle webhook payload. Split from
// signature verification so tests can exercise the mapping directly.
func ParsePaddleEvent(payload []byte) (*Event, error) {
	var raw struct {
		EventID    string         `json:"event_id"`
		EventType  string         `json:"event_type"`
		OccurredAt string         `json:"occurred_at"`
		Data       map[string]any `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, errors.Join(ErrMalformedPayload, err)
	}
	if raw.EventType == "" {
		return nil, ErrMalformedPayload
	}

	event := &Event{
		Kind:          mapPaddleEventKind(raw.EventType),
		ProviderEvent: raw.EventType,
		Raw:           raw.Data,
	}
	if occurred, err := time.Parse(time.RFC3339Nano, raw.OccurredAt); err == nil {
		event.OccurredAt = occurred
	}

	switch {
	case strings.HasPrefix(raw.EventType, "subscription."):
		if id, ok := raw.Data["id"].(string); ok {
			event.SubscriptionRef = id
		}
		if status, ok := raw.Data["status"].(string); ok {
			event.Status = status
		}
		event.PeriodEnd = nestedTime(raw.Data, "current_billing_period", "ends_at")

	case strings.HasPrefix(raw.EventType, "transaction."):
		// Transactions carry the subscription they bill for, if any.
		if subID, ok := raw.Data["subscription_id"].(string); ok {
			event.SubscriptionRef = subID
		}
		if status, ok := raw.Data["status"].(string); ok {
			event.Status = status
		}
		event.PeriodEnd = nestedTime(raw.Data, "billing_period", "ends_at")
	}

	return event, nil
}

func mapPaddleEventKind(providerEvent string) EventKind {
	switch providerEvent {
	case "subscription.updated", "subscription.past_due", "subscription.resumed":
		return EventSubscriptionUpdated
	case "subscription.canceled":
		return EventSubscriptionDeleted
	case "transaction.payment_succeeded", "transaction.completed":
		return EventPaymentSucceeded
	case "transaction.payment_failed":
		return EventPaymentFailed
	default:
		// Unmapped events keep the provider name; consumers skip them.
		return EventKind(providerEvent)
	}
}

func nestedTime(data map[string]any, objectKey, timeKey string) *time.Time {
	object, ok := data[objectKey].(map[string]any)
	if !ok {
		return nil
	}
	value, ok := object[timeKey].(string)
	if !ok {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return nil
	}
	return &parsed
}

func (p *PaddleGateway) subscriptionResult(ctx context.Context, subscriptionRef string) (*SubscriptionResult, error) {
	sub, err := p.client.SubscriptionsClient.GetSubscription(ctx, &paddle.GetSubscriptionRequest{
		SubscriptionID: subscriptionRef,
	})
	if err != nil {
		return nil, errors.Join(ErrGateway, err)
	}
	return paddleSubscriptionResult(sub), nil
}

func paddleSubscriptionResult(sub *paddle.Subscription) *SubscriptionResult {
	result := &SubscriptionResult{
		SubscriptionRef: sub.ID,
		CustomerRef:     sub.CustomerID,
		Status:          string(sub.Status),
	}
	if sub.CurrentBillingPeriod != nil {
		if end, err := time.Parse(time.RFC3339Nano, sub.CurrentBillingPeriod.EndsAt); err == nil {
			result.PeriodEnd = &end
		}
	}
	return result
}
