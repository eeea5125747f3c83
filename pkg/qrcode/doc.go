// Package qrcode generates QR code images as raw PNG bytes or as data-URI
// strings that can be embedded directly into HTML pages.
//
// It is a thin wrapper around github.com/skip2/go-qrcode adding input
// validation and sensible defaults. The two-factor enrollment flow uses it to
// turn otpauth:// provisioning URIs into scannable images; the image is a
// response-only artifact and is never persisted.
package qrcode
