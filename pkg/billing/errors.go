package billing

import "errors"

var (
	// ErrGateway wraps any processor call failure, including timeouts.
	ErrGateway = errors.New("billing: payment gateway call failed")
	// ErrInvalidSignature is returned when a webhook signature does not verify.
	ErrInvalidSignature = errors.New("billing: invalid webhook signature")
	// ErrMalformedPayload is returned when a verified payload cannot be parsed.
	ErrMalformedPayload = errors.New("billing: malformed webhook payload")
	// ErrMissingArgument is returned when a required reference is empty.
	ErrMissingArgument = errors.New("billing: missing required argument")
)
