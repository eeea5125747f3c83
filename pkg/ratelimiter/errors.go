package ratelimiter

import "errors"

var (
	// ErrInvalidConfig is returned for non-positive bucket parameters.
	ErrInvalidConfig = errors.New("ratelimiter: invalid config")
	// ErrInvalidTokenCount is returned when a non-positive token count is requested.
	ErrInvalidTokenCount = errors.New("ratelimiter: invalid token count")
	// ErrStoreFailure is returned when the storage backend fails.
	ErrStoreFailure = errors.New("ratelimiter: store failure")
)
