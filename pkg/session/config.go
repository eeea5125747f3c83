package session

import "time"

type Config struct {
	CookieName      string        `env:"SESSION_COOKIE_NAME" envDefault:"twibby_session"` // CookieName is the name of the session cookie.
	SigningSecret   string        `env:"SESSION_SIGNING_SECRET,required"`                 // SigningSecret signs cookie values so tampered cookies are rejected before any store lookup.
	TTL             time.Duration `env:"SESSION_TTL" envDefault:"720h"`                   // TTL is the session lifetime.
	SecureCookies   bool          `env:"SESSION_SECURE_COOKIES" envDefault:"true"`        // SecureCookies adds the Secure flag; disable only for local development over plain HTTP.
	CleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"10m"`       // CleanupInterval is how often the memory store sweeps expired sessions.
}
