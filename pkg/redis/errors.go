package redis

import "errors"

var (
	// ErrFailedToParseConnString is returned for malformed connection URLs.
	ErrFailedToParseConnString = errors.New("redis: failed to parse connection string")
	// ErrNotReady is returned when all connection attempts fail.
	ErrNotReady = errors.New("redis: server is not ready")
	// ErrHealthcheckFailed is returned when the ping probe fails.
	ErrHealthcheckFailed = errors.New("redis: healthcheck failed")
)
