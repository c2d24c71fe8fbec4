package auth

import "errors"

var (
	ErrUserNotFound       = errors.New("auth: user not found")
	ErrUserAlreadyExists  = errors.New("auth: username or email already taken")
	ErrInvalidCredentials = errors.New("auth: invalid username or password")
	ErrInvalidInput       = errors.New("auth: missing or malformed input")

	ErrInvalidToken    = errors.New("auth: invalid token")
	ErrExpiredToken    = errors.New("auth: token expired")
	ErrNotRefreshToken = errors.New("auth: token is not a refresh token")
)
