package config

import "errors"

var (
	// ErrNilPointer is returned when a nil configuration pointer is passed to Load.
	ErrNilPointer = errors.New("config: nil pointer passed to Load")
	// ErrParsingConfig wraps errors produced while parsing environment variables.
	ErrParsingConfig = errors.New("config: failed to parse environment variables")
)
