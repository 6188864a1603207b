package session

import "errors"

var (
	// ErrRedisUnavailable wraps any Redis command failure.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrEmptyToken is returned by SetToken for an empty token.
	ErrEmptyToken = errors.New("empty session token")
	// ErrTokenExpired is returned by SetToken when the token's exp claim has already passed.
	ErrTokenExpired = errors.New("session token already expired")
)
