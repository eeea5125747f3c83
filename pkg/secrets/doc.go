// Package secrets provides AES-256-GCM encryption for short secrets stored
// at rest, such as TOTP shared secrets.
//
// The application holds a single 32-byte master key (TWOFACTOR_ENCRYPTION_KEY,
// base64-encoded). Per-record subkeys are derived with HKDF-SHA256 using a
// caller-supplied scope string (typically the owning user ID) as salt, so a
// ciphertext copied between rows fails authentication on decrypt.
//
// Ciphertext layout: nonce || AES-GCM ciphertext || tag, base64-encoded.
package secrets
