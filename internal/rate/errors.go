package rate

import "errors"

var (
	// ErrRateLimited is returned once a counter reached its budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps every redis failure.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
