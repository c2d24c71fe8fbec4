package subscription

import "errors"

var (
	ErrNotFound      = errors.New("subscription: not found")
	ErrAlreadyExists = errors.New("subscription: user already has a subscription")

	ErrUnknownPlan           = errors.New("subscription: unknown plan")
	ErrInvalidCatalog        = errors.New("subscription: invalid plan catalog")
	ErrPaymentMethodRequired = errors.New("subscription: payment method is required")

	ErrCheckoutNotFound = errors.New("subscription: checkout token unknown or already used")
	ErrMissingArgument  = errors.New("subscription: missing required argument")

	ErrInvalidTransition = errors.New("subscription: status transition not allowed")
)
