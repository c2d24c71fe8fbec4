package metrics

import "errors"

var (
	ErrUserNotFound  = errors.New("metrics: user not found")
	ErrNegativeDelta = errors.New("metrics: usage deltas must be non-negative")
)
