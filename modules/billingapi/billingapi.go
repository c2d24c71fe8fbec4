// Package billingapi exposes the subscription lifecycle over HTTP: direct
// subscribe/cancel, hosted checkout and the processor's webhook endpoint.
package billingapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/admute/backend/pkg/auth"
	"github.com/admute/backend/pkg/billing"
	"github.com/admute/backend/pkg/httpx"
	"github.com/admute/backend/pkg/subscription"
)

// Webhook payloads are small JSON documents; anything bigger is abuse.
const maxWebhookBytes = 256 << 10

// UserReader resolves the authenticated user's profile; satisfied by
// auth.Service.
type UserReader interface {
	UserByID(ctx context.Context, id uuid.UUID) (*auth.User, error)
}

type Service struct {
	subs      *subscription.Service
	users     UserReader
	authSvc   *auth.Service
	sigHeader string
	log       *slog.Logger
}

// NewService creates the billing API module. sigHeader names the request
// header carrying the webhook signature.
func NewService(subs *subscription.Service, users UserReader, authSvc *auth.Service, sigHeader string, log *slog.Logger) *Service {
	if subs == nil {
		panic("billingapi: subscription.Service is required")
	}
	if users == nil {
		panic("billingapi: UserReader is required")
	}
	if authSvc == nil {
		panic("billingapi: auth.Service is required")
	}
	if sigHeader == "" {
		panic("billingapi: signature header name is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{subs: subs, users: users, authSvc: authSvc, sigHeader: sigHeader, log: log}
}

// Handle returns the module router. The webhook and the checkout success
// redirect are unauthenticated: the webhook authenticates by signature, the
// redirect by its single-use token. Everything else requires a bearer token.
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()

	r.Post("/webhook", s.webhook)
	r.Get("/subscription-success", s.checkoutSuccess)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.authSvc))
		r.Post("/subscribe", s.subscribe)
		r.Post("/cancel", s.cancel)
		r.Get("/subscription", s.get)
		r.Post("/create-checkout-session", s.createCheckoutSession)
	})

	return r
}

type subscribeRequest struct {
	Plan          string `json:"plan"`
	PaymentMethod string `json:"payment_method"`
}

type subscriptionResponse struct {
	Plan             string     `json:"plan"`
	Status           string     `json:"status"`
	DeviceLimit      int        `json:"device_limit"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func (s *Service) subscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, r, s.log, httpx.ErrUnauthorized)
		return
	}

	var req subscribeRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, s.log, err)
		return
	}

	user, err := s.users.UserByID(r.Context(), userID)
	if err != nil {
		httpx.Error(w, r, s.log, mapBillingError(err))
		return
	}

	sub, err := s.subs.Subscribe(r.Context(), userID, user.Email, subscription.Plan(req.Plan), req.PaymentMethod)
	if err != nil {
		httpx.Error(w, r, s.log, mapBillingError(err))
		return
	}

	httpx.JSON(w, http.StatusCreated, toSubscriptionResponse(sub))
}

func (s *Service) cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, r, s.log, httpx.ErrUnauthorized)
		return
	}

	sub, err := s.subs.Cancel(r.Context(), userID)
	if err != nil {
		httpx.Error(w, r, s.log, mapBillingError(err))
		return
	}

	httpx.JSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

func (s *Service) get(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, r, s.log, httpx.ErrUnauthorized)
		return
	}

	sub, err := s.subs.Get(r.Context(), userID)
	if err != nil {
		httpx.Error(w, r, s.log, mapBillingError(err))
		return
	}

	httpx.JSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

type checkoutRequest struct {
	Plan string `json:"plan"`
}

type checkoutResponse struct {
	SessionRef  string `json:"session_ref"`
	RedirectURL string `json:"redirect_url"`
}

func (s *Service) createCheckoutSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, r, s.log, httpx.ErrUnauthorized)
		return
	}

	var req checkoutRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, s.log, err)
		return
	}

	session, err := s.subs.StartCheckout(r.Context(), userID, subscription.Plan(req.Plan))
	if err != nil {
		httpx.Error(w, r, s.log, mapBillingError(err))
		return
	}

	httpx.JSON(w, http.StatusOK, checkoutResponse{
		SessionRef:  session.SessionRef,
		RedirectURL: session.RedirectURL,
	})
}

// checkoutSuccess is the provider's success redirect target. The single-use
// token minted at session creation is the credential here; no bearer token
// is available on a browser redirect.
func (s *Service) checkoutSuccess(w http.ResponseWriter, r *http.Request) {
	sessionRef := r.URL.Query().Get("session_ref")
	token := r.URL.Query().Get("token")

	sub, err := s.subs.CompleteCheckout(r.Context(), sessionRef, token)
	if err != nil {
		httpx.Error(w, r, s.log, mapBillingError(err))
		return
	}

	httpx.JSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

func (s *Service) webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		httpx.Error(w, r, s.log, httpx.ErrBadRequest)
		return
	}

	if err := s.subs.HandleWebhook(r.Context(), payload, r.Header.Get(s.sigHeader)); err != nil {
		httpx.Error(w, r, s.log, mapBillingError(err))
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toSubscriptionResponse(sub *subscription.Subscription) subscriptionResponse {
	return subscriptionResponse{
		Plan:             string(sub.Plan),
		Status:           string(sub.Status),
		DeviceLimit:      sub.DeviceLimit,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
		CreatedAt:        sub.CreatedAt,
	}
}

func mapBillingError(err error) error {
	switch {
	case errors.Is(err, subscription.ErrUnknownPlan),
		errors.Is(err, subscription.ErrPaymentMethodRequired),
		errors.Is(err, subscription.ErrMissingArgument),
		errors.Is(err, billing.ErrMalformedPayload):
		return errors.Join(httpx.ErrBadRequest, err)
	case errors.Is(err, subscription.ErrAlreadyExists),
		errors.Is(err, subscription.ErrInvalidTransition):
		return errors.Join(httpx.ErrConflict, err)
	case errors.Is(err, subscription.ErrNotFound),
		errors.Is(err, subscription.ErrCheckoutNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		return errors.Join(httpx.ErrNotFound, err)
	case errors.Is(err, billing.ErrInvalidSignature):
		return errors.Join(httpx.ErrUnauthorized, err)
	case errors.Is(err, billing.ErrGateway):
		return errors.Join(httpx.ErrBadGateway, err)
	default:
		return err
	}
}
