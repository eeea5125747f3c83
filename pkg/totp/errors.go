package totp

import "errors"

var (
	// ErrMissingSecret is returned when no secret is provided.
	ErrMissingSecret = errors.New("totp: missing secret")
	// ErrInvalidSecret is returned when the secret is not valid Base32.
	ErrInvalidSecret = errors.New("totp: invalid secret")
	// ErrMissingAccountName is returned when no account name is provided for a provisioning URI.
	ErrMissingAccountName = errors.New("totp: missing account name")
	// ErrMissingIssuer is returned when no issuer is provided for a provisioning URI.
	ErrMissingIssuer = errors.New("totp: missing issuer")
	// ErrInvalidCodeFormat is returned when the submitted code is not a 6-digit string.
	ErrInvalidCodeFormat = errors.New("totp: code must be a 6-digit string")
	// ErrSecretGenerationFailed is returned when random secret generation fails.
	ErrSecretGenerationFailed = errors.New("totp: failed to generate secret key")
)
