package twofactor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dangtiendungai/Twibby/pkg/qrcode"
	"github.com/dangtiendungai/Twibby/pkg/secrets"
	"github.com/dangtiendungai/Twibby/pkg/totp"
)

// Identity is the authenticated caller. The service never reads it from
// context; the transport layer resolves it and passes it explicitly.
type Identity struct {
	UserID uuid.UUID
	Email  string
}

// EmailLookup resolves an email address to a user ID. Implementations
// return an error when no user matches.
type EmailLookup func(ctx context.Context, email string) (uuid.UUID, error)

// ProvisioningData is returned by Generate for the enrollment screen.
type ProvisioningData struct {
	Secret     string `json:"secret"`
	OtpauthURL string `json:"otpauth_url"`
	QRCode     string `json:"qr_code"`
}

// Service orchestrates the two-factor record lifecycle.
type Service struct {
	storage     Storage
	cipher      *secrets.Cipher
	lookupEmail EmailLookup
	issuer      string
	qrCodeSize  int
	now         func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithIssuer sets the issuer label shown in authenticator apps.
func WithIssuer(issuer string) Option {
	return func(s *Service) { s.issuer = issuer }
}

// WithQRCodeSize sets the provisioning QR code size in pixels.
func WithQRCodeSize(size int) Option {
	return func(s *Service) { s.qrCodeSize = size }
}

// WithEmailLookup enables the pre-login check: RequiredForEmail uses the
// lookup to map an email to a user before reading the enrollment state.
func WithEmailLookup(lookup EmailLookup) Option {
	return func(s *Service) { s.lookupEmail = lookup }
}

// WithClock overrides the time source. Tests use it to pin the TOTP step.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a two-factor service. The cipher encrypts TOTP secrets
// before they reach storage.
func NewService(storage Storage, cipher *secrets.Cipher, opts ...Option) *Service {
	s := &Service{
		storage:    storage,
		cipher:     cipher,
		issuer:     "Twibby",
		qrCodeSize: 256,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate provisions a fresh secret for the user and returns the material
// for the enrollment screen. Any previous enrollment, confirmed or not, is
// invalidated: the old secret is overwritten and the record drops back to
// pending until the new secret is confirmed.
func (s *Service) Generate(ctx context.Context, identity Identity) (*ProvisioningData, error) {
	secret, err := totp.GenerateSecretKey()
	if err != nil {
		return nil, err
	}

	uri, err := totp.KeyURI(totp.KeyParams{
		Secret:      secret,
		AccountName: identity.Email,
		Issuer:      s.issuer,
	})
	if err != nil {
		return nil, err
	}

	encrypted, err := s.cipher.EncryptString(secretScope(identity.UserID), secret)
	if err != nil {
		return nil, err
	}

	if err := s.storage.Upsert(ctx, identity.UserID, encrypted); err != nil {
		return nil, err
	}

	qr, err := qrcode.GenerateDataURI(uri, s.qrCodeSize)
	if err != nil {
		return nil, err
	}

	return &ProvisioningData{
		Secret:     secret,
		OtpauthURL: uri,
		QRCode:     qr,
	}, nil
}

// Enable confirms enrollment: the code must match the pending secret within
// the tolerance window. Confirming an already enabled record succeeds when
// given a fresh code; resubmitting a code that was already accepted falls to
// the replay guard and returns ErrInvalidCode.
func (s *Service) Enable(ctx context.Context, identity Identity, code string) error {
	record, secret, err := s.load(ctx, identity.UserID)
	if err != nil {
		return err
	}

	counter, err := s.validate(secret, code, record.LastCounter)
	if err != nil {
		return err
	}

	return s.storage.Enable(ctx, identity.UserID, counter)
}

// Verify checks a login-time code. It requires a confirmed enrollment and
// advances the replay counter on success so the same code cannot be used
// twice.
func (s *Service) Verify(ctx context.Context, identity Identity, code string) error {
	record, secret, err := s.load(ctx, identity.UserID)
	if err != nil {
		return err
	}
	if !record.Enabled {
		return ErrNotEnabled
	}

	counter, err := s.validate(secret, code, record.LastCounter)
	if err != nil {
		return err
	}

	return s.storage.AdvanceCounter(ctx, identity.UserID, counter)
}

// Disable turns two-factor off and discards the secret entirely. A user who
// re-enables later always enrolls a fresh secret. Disabling an account that
// was never enrolled succeeds.
func (s *Service) Disable(ctx context.Context, identity Identity) error {
	return s.storage.Delete(ctx, identity.UserID)
}

// RequiredForEmail reports whether a login for email must present a second
// factor. Unknown emails and accounts without a confirmed enrollment both
// report false, so the endpoint does not reveal which emails exist. Without
// an email lookup configured it always reports false.
func (s *Service) RequiredForEmail(ctx context.Context, email string) (bool, error) {
	if s.lookupEmail == nil {
		return false, nil
	}

	userID, err := s.lookupEmail(ctx, email)
	if err != nil {
		return false, nil
	}

	return s.Status(ctx, Identity{UserID: userID, Email: email})
}

// Status reports whether the user has a confirmed enrollment. A pending
// (unconfirmed) secret counts as disabled.
func (s *Service) Status(ctx context.Context, identity Identity) (bool, error) {
	record, err := s.storage.Get(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return record.Enabled, nil
}

// load fetches the record and decrypts its secret.
func (s *Service) load(ctx context.Context, userID uuid.UUID) (*Record, string, error) {
	record, err := s.storage.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, "", ErrNotProvisioned
		}
		return nil, "", err
	}

	secret, err := s.cipher.DecryptString(secretScope(userID), record.Secret)
	if err != nil {
		return nil, "", errors.Join(ErrStorageFailure, err)
	}
	return record, secret, nil
}

func (s *Service) validate(secret, code string, lastCounter int64) (int64, error) {
	ok, counter, err := totp.ValidateCodeWithCounter(secret, code, s.now(), lastCounter)
	if err != nil {
		return 0, errors.Join(ErrInvalidCode, err)
	}
	if !ok {
		return 0, ErrInvalidCode
	}
	return counter, nil
}

// secretScope binds a ciphertext to its owner, so a row copied onto another
// user's record fails to decrypt.
func secretScope(userID uuid.UUID) string {
	return "twofactor:" + userID.String()
}
