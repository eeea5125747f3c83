package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base32"
	"errors"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	// Digits is the number of digits in generated codes (RFC 6238 standard).
	Digits = 6
	// Period is the code validity window in seconds (RFC 6238 standard).
	Period = 30
	// Algorithm is the HMAC algorithm advertised in provisioning URIs.
	// SHA-1 is the de facto standard supported by all authenticator apps.
	Algorithm = "SHA1"

	// secretBytes is the raw secret length: 160 bits per RFC 4226.
	secretBytes = 20

	// windowSteps is the clock-drift tolerance. Codes for the previous,
	// current and next step are accepted; anything further is rejected.
	windowSteps = 1
)

var (
	// SecretKeyRegex ensures Base32 format: uppercase A-Z, digits 2-7, optional padding.
	SecretKeyRegex = regexp.MustCompile("^[A-Z2-7]+=*$")

	codeRegex = regexp.MustCompile(fmt.Sprintf(`^\d{%d}$`, Digits))

	b32 = base32.StdEncoding.WithPadding(base32.NoPadding)
)

// KeyParams describes an enrollment for provisioning URI generation.
type KeyParams struct {
	Secret      string // Base32-encoded shared secret (required)
	AccountName string // User identifier shown in the authenticator app, typically email (required)
	Issuer      string // Service name displayed in the authenticator app (required)
}

func (p KeyParams) validate() error {
	if p.Secret == "" {
		return ErrMissingSecret
	}
	if !SecretKeyRegex.MatchString(p.Secret) {
		return ErrInvalidSecret
	}
	if p.AccountName == "" {
		return ErrMissingAccountName
	}
	if p.Issuer == "" {
		return ErrMissingIssuer
	}
	return nil
}

// GenerateSecretKey generates a new Base32-encoded 160-bit shared secret.
func GenerateSecretKey() (string, error) {
	secret := make([]byte, secretBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", errors.Join(ErrSecretGenerationFailed, err)
	}
	return b32.EncodeToString(secret), nil
}

// KeyURI builds an otpauth:// provisioning URI for authenticator apps.
// The format follows the Key Uri Format specification:
// https://github.com/google/google-authenticator/wiki/Key-Uri-Format
func KeyURI(params KeyParams) (string, error) {
	if err := params.validate(); err != nil {
		return "", err
	}

	label := fmt.Sprintf("%s:%s",
		url.PathEscape(params.Issuer),
		url.PathEscape(params.AccountName),
	)

	query := url.Values{}
	query.Set("secret", params.Secret)
	query.Set("issuer", params.Issuer)
	query.Set("algorithm", Algorithm)
	query.Set("digits", fmt.Sprintf("%d", Digits))
	query.Set("period", fmt.Sprintf("%d", Period))

	return fmt.Sprintf("otpauth://totp/%s?%s", label, query.Encode()), nil
}

// GenerateCode returns the 6-digit code for the time step containing t.
func GenerateCode(secret string, t time.Time) (string, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", Digits, hotp(key, t.Unix()/Period)), nil
}

// ValidateCode reports whether code is valid for secret at time t, accepting
// codes from the previous, current and next time step to absorb clock drift.
func ValidateCode(secret, code string, t time.Time) (bool, error) {
	ok, _, err := ValidateCodeWithCounter(secret, code, t, 0)
	return ok, err
}

// ValidateCodeWithCounter is ValidateCode with a replay guard: time steps at
// or before lastCounter are never accepted again, so an observed code cannot
// be replayed inside the tolerance window. Pass 0 to disable the guard.
// On success it returns the matched step counter for the caller to persist.
func ValidateCodeWithCounter(secret, code string, t time.Time, lastCounter int64) (bool, int64, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return false, 0, err
	}

	code = strings.TrimSpace(code)
	if !codeRegex.MatchString(code) {
		return false, 0, ErrInvalidCodeFormat
	}

	counter := t.Unix() / Period
	for c := counter - windowSteps; c <= counter+windowSteps; c++ {
		if lastCounter > 0 && c <= lastCounter {
			continue
		}
		if fmt.Sprintf("%0*d", Digits, hotp(key, c)) == code {
			return true, c, nil
		}
	}

	return false, 0, nil
}

func decodeSecret(secret string) ([]byte, error) {
	secret = strings.TrimSpace(strings.ToUpper(secret))
	if !SecretKeyRegex.MatchString(secret) {
		return nil, ErrInvalidSecret
	}
	key, err := b32.DecodeString(strings.TrimRight(secret, "="))
	if err != nil {
		return nil, errors.Join(ErrInvalidSecret, err)
	}
	return key, nil
}

// hotp implements the RFC 4226 HMAC-based one-time password algorithm,
// converting a counter value into a numeric code using HMAC-SHA1.
func hotp(key []byte, counter int64) int {
	// Counter is encoded as a big-endian 8-byte value (RFC 4226 requirement).
	var msg [8]byte
	for i := 7; i >= 0; i-- {
		msg[i] = byte(counter & 0xff)
		counter >>= 8
	}

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	// Dynamic truncation: the last 4 bits select the offset, the MSB is
	// cleared to keep the extracted 31-bit value positive.
	offset := sum[len(sum)-1] & 0x0f
	code := (int(sum[offset]&0x7f) << 24) |
		(int(sum[offset+1]) << 16) |
		(int(sum[offset+2]) << 8) |
		int(sum[offset+3])

	return code % int(math.Pow10(Digits))
}
