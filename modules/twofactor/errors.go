package twofactor

import "errors"

var (
	// ErrUnauthenticated is returned when no identity could be resolved for
	// the request.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrNotProvisioned is returned when the user has no two-factor record.
	ErrNotProvisioned = errors.New("two-factor authentication not provisioned")

	// ErrNotEnabled is returned when a record exists but enrollment was never
	// confirmed.
	ErrNotEnabled = errors.New("two-factor authentication not enabled")

	// ErrInvalidCode is returned when the submitted code does not match any
	// accepted time step.
	ErrInvalidCode = errors.New("invalid verification code")

	// ErrRecordNotFound is the storage-level miss; the service translates it
	// into ErrNotProvisioned.
	ErrRecordNotFound = errors.New("two-factor record not found")

	// ErrStorageFailure wraps infrastructure errors from the storage backend.
	ErrStorageFailure = errors.New("two-factor storage failure")
)
