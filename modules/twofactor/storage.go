package twofactor

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record is a user's two-factor enrollment row. Secret holds the encrypted
// TOTP secret; LastCounter is the highest time-step counter a code was
// accepted for and guards against replay within the tolerance window.
type Record struct {
	UserID      uuid.UUID
	Secret      string
	Enabled     bool
	LastCounter int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Storage persists two-factor records, one per user.
type Storage interface {
	// Get returns the record for userID or ErrRecordNotFound.
	Get(ctx context.Context, userID uuid.UUID) (*Record, error)

	// Upsert installs a new encrypted secret for userID. It must atomically
	// reset Enabled to false and LastCounter to zero so a re-provisioned
	// account can never be left enabled with an unverified secret.
	Upsert(ctx context.Context, userID uuid.UUID, encryptedSecret string) error

	// Enable marks the record enabled and records the counter the
	// confirmation code matched. Returns ErrRecordNotFound when no record
	// exists.
	Enable(ctx context.Context, userID uuid.UUID, lastCounter int64) error

	// AdvanceCounter records the counter a login-time code matched.
	// Returns ErrRecordNotFound when no record exists.
	AdvanceCounter(ctx context.Context, userID uuid.UUID, lastCounter int64) error

	// Delete removes the record. Deleting a missing record is not an error.
	Delete(ctx context.Context, userID uuid.UUID) error
}
