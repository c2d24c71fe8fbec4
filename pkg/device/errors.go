package device

import "errors"

var (
	ErrNotFound             = errors.New("device: not found")
	ErrAlreadyRegistered    = errors.New("device: device id already registered")
	ErrMissingDeviceID      = errors.New("device: device id is required")
	ErrNoActiveSubscription = errors.New("device: no active subscription")
	ErrQuotaExceeded        = errors.New("device: device limit reached")
)
