package secrets

import "errors"

var (
	// ErrInvalidKey is returned when the application key is not 32 bytes.
	ErrInvalidKey = errors.New("secrets: application key must be 32 bytes")
	// ErrInvalidCiphertext is returned for malformed or truncated ciphertext.
	ErrInvalidCiphertext = errors.New("secrets: invalid ciphertext")
	// ErrEncryptionFailed is returned when sealing fails.
	ErrEncryptionFailed = errors.New("secrets: encryption failed")
	// ErrDecryptionFailed is returned when opening fails, including
	// authentication failures from a wrong key or scope.
	ErrDecryptionFailed = errors.New("secrets: decryption failed")
)
