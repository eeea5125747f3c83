package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the required application key size: 256 bits for AES-256.
	KeySize = 32

	// hkdfInfo provides domain separation so the same application key cannot
	// be reused for other purposes without deriving a different subkey.
	hkdfInfo = "twibby-secrets-v1"
)

// Cipher encrypts and decrypts short secrets with AES-256-GCM.
// Subkeys are derived per scope with HKDF, so records owned by different
// scopes (for example different users) are sealed under different keys even
// though the application holds a single master key.
type Cipher struct {
	appKey []byte
}

// NewCipher validates the application key and returns a Cipher.
func NewCipher(appKey []byte) (*Cipher, error) {
	if len(appKey) != KeySize {
		return nil, ErrInvalidKey
	}
	key := make([]byte, KeySize)
	copy(key, appKey)
	return &Cipher{appKey: key}, nil
}

// NewCipherFromBase64 decodes a base64-encoded application key and returns a Cipher.
// This is the form keys take in environment variables; see cmd/keygen.
func NewCipherFromBase64(encoded string) (*Cipher, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Join(ErrInvalidKey, err)
	}
	return NewCipher(key)
}

// EncryptString seals plaintext under a subkey derived for scope.
// Returns base64-encoded ciphertext in the format nonce || ciphertext || tag.
func (c *Cipher) EncryptString(scope, plaintext string) (string, error) {
	ciphertext, err := c.encrypt(scope, []byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptString reverses EncryptString. The same scope must be supplied;
// a ciphertext sealed for one scope will not open under another.
func (c *Cipher) DecryptString(scope, encoded string) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", errors.Join(ErrInvalidCiphertext, err)
	}
	plaintext, err := c.decrypt(scope, ciphertext)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func (c *Cipher) encrypt(scope string, data []byte) ([]byte, error) {
	aead, err := c.aead(scope)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}

	// Prepend nonce to ciphertext for storage.
	return aead.Seal(nonce, nonce, data, nil), nil
}

func (c *Cipher) decrypt(scope string, ciphertext []byte) ([]byte, error) {
	aead, err := c.aead(scope)
	if err != nil {
		return nil, err
	}

	ns := aead.NonceSize()
	if len(ciphertext) < ns {
		return nil, ErrInvalidCiphertext
	}

	plaintext, err := aead.Open(nil, ciphertext[:ns], ciphertext[ns:], nil)
	if err != nil {
		return nil, errors.Join(ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

func (c *Cipher) aead(scope string) (cipher.AEAD, error) {
	key, err := deriveKey(c.appKey, scope)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}
	return aead, nil
}

// deriveKey derives a scope-bound subkey from the application key using HKDF.
func deriveKey(appKey []byte, scope string) ([]byte, error) {
	r := hkdf.New(sha256.New, appKey, []byte(scope), []byte(hkdfInfo))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}
	return key, nil
}

// GenerateKey returns a new random application key, base64-encoded for storage
// in an environment variable.
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
