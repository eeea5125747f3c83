package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dangtiendungai/Twibby/pkg/token"
)

// cookiePayload is the signed value stored in the session cookie.
type cookiePayload struct {
	Token string `json:"t"`
}

// Manager handles session lifecycle and cookie transport.
type Manager struct {
	store  Store
	config Config
}

// Option configures the Manager.
type Option func(*Manager)

// WithStore sets the session storage backend.
func WithStore(store Store) Option {
	return func(m *Manager) { m.store = store }
}

// New creates a session manager. Without WithStore it falls back to an
// in-memory store, which is only appropriate for tests and single-instance
// development setups.
func New(cfg Config, opts ...Option) *Manager {
	m := &Manager{config: cfg}
	for _, opt := range opts {
		opt(m)
	}
	if m.store == nil {
		m.store = NewMemoryStore(cfg.CleanupInterval)
	}
	return m
}

// Get retrieves the session for the request's cookie.
// The cookie signature is verified before the store is consulted, so forged
// cookies cost nothing but an HMAC check.
func (m *Manager) Get(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.config.CookieName)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	payload, err := token.Parse[cookiePayload](cookie.Value, m.config.SigningSecret)
	if err != nil {
		return nil, ErrInvalidCookie
	}

	session, err := m.store.Get(ctx, payload.Token)
	if err != nil {
		return nil, err
	}
	if session.IsExpired() {
		_ = m.store.Delete(ctx, session.Token)
		return nil, ErrSessionExpired
	}

	return session, nil
}

// Authenticate creates a new authenticated session for userID and sets the
// cookie. Any session referenced by the current request cookie is destroyed
// first so authentication always rotates the token.
func (m *Manager) Authenticate(ctx context.Context, w http.ResponseWriter, r *http.Request, userID uuid.UUID) (*Session, error) {
	if existing, err := m.Get(ctx, r); err == nil {
		_ = m.store.Delete(ctx, existing.Token)
	}

	tok, err := generateToken()
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}

	session := NewSession(tok, &userID, m.config.TTL)
	if err := m.store.Create(ctx, session); err != nil {
		return nil, err
	}

	if err := m.setCookie(w, tok, m.config.TTL); err != nil {
		_ = m.store.Delete(ctx, tok)
		return nil, err
	}

	return session, nil
}

// Logout destroys the current session and clears the cookie.
// Missing or invalid sessions are not an error.
func (m *Manager) Logout(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if session, err := m.Get(ctx, r); err == nil {
		if err := m.store.Delete(ctx, session.Token); err != nil {
			return err
		}
	}
	m.clearCookie(w)
	return nil
}

// RevokeAll destroys every session belonging to userID.
func (m *Manager) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	return m.store.DeleteByUserID(ctx, userID.String())
}

func (m *Manager) setCookie(w http.ResponseWriter, sessionToken string, ttl time.Duration) error {
	signed, err := token.Generate(cookiePayload{Token: sessionToken}, m.config.SigningSecret)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
