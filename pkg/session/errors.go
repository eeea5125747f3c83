package session

import "errors"

var (
	// ErrSessionNotFound is returned when no session exists for a token.
	ErrSessionNotFound = errors.New("session: not found")
	// ErrSessionExpired is returned for sessions past their expiry.
	ErrSessionExpired = errors.New("session: expired")
	// ErrInvalidCookie is returned when the cookie value fails signature verification.
	ErrInvalidCookie = errors.New("session: invalid cookie")
	// ErrStoreFailure is returned when the storage backend fails.
	ErrStoreFailure = errors.New("session: store failure")
)
