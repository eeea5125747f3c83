package twofactor

import "time"

// Config holds the two-factor module configuration loaded from the
// environment.
type Config struct {
	// Issuer is the name shown in authenticator apps next to the account.
	Issuer string `env:"TWOFACTOR_ISSUER" envDefault:"Twibby"`

	// EncryptionKey is the base64-encoded 32-byte key used to encrypt TOTP
	// secrets at rest. Generate one with cmd/keygen.
	EncryptionKey string `env:"TWOFACTOR_ENCRYPTION_KEY,required"`

	// QRCodeSize is the pixel size of the provisioning QR code.
	QRCodeSize int `env:"TWOFACTOR_QR_SIZE" envDefault:"256"`

	// Code submission rate limit, applied per user to enable and verify.
	RateLimitAttempts int           `env:"TWOFACTOR_RATELIMIT_ATTEMPTS" envDefault:"5"`
	RateLimitInterval time.Duration `env:"TWOFACTOR_RATELIMIT_INTERVAL" envDefault:"1m"`
}
