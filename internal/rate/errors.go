package rate

import "errors"

var (
	// ErrRateLimited is returned when a bucket has no token available within the caller's deadline.
	ErrRateLimited = errors.New("rate limited")
	// ErrInvalidRule is returned by New for a rule with a negative rate or a non-positive burst.
	ErrInvalidRule = errors.New("invalid rate rule")
)
