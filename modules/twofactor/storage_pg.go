package twofactor

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dangtiendungai/Twibby/pkg/pg"
)

// PGStorage implements Storage on PostgreSQL.
type PGStorage struct {
	pool *pgxpool.Pool
}

// NewPGStorage creates a PostgreSQL-backed two-factor storage.
func NewPGStorage(pool *pgxpool.Pool) *PGStorage {
	return &PGStorage{pool: pool}
}

func (s *PGStorage) Get(ctx context.Context, userID uuid.UUID) (*Record, error) {
	const query = `
		SELECT user_id, secret, enabled, last_counter, created_at, updated_at
		FROM two_factor_secrets
		WHERE user_id = $1`

	var rec Record
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&rec.UserID,
		&rec.Secret,
		&rec.Enabled,
		&rec.LastCounter,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrRecordNotFound
		}
		return nil, errors.Join(ErrStorageFailure, err)
	}
	return &rec, nil
}

// Upsert swaps in the new secret and resets the enrollment state in a single
// statement, so concurrent requests can never observe a new secret with the
// old enabled flag.
func (s *PGStorage) Upsert(ctx context.Context, userID uuid.UUID, encryptedSecret string) error {
	const query = `
		INSERT INTO two_factor_secrets (user_id, secret, enabled, last_counter)
		VALUES ($1, $2, FALSE, 0)
		ON CONFLICT (user_id) DO UPDATE
		SET secret = EXCLUDED.secret,
		    enabled = FALSE,
		    last_counter = 0,
		    updated_at = now()`

	if _, err := s.pool.Exec(ctx, query, userID, encryptedSecret); err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	return nil
}

func (s *PGStorage) Enable(ctx context.Context, userID uuid.UUID, lastCounter int64) error {
	const query = `
		UPDATE two_factor_secrets
		SET enabled = TRUE, last_counter = $2, updated_at = now()
		WHERE user_id = $1`

	tag, err := s.pool.Exec(ctx, query, userID, lastCounter)
	if err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// AdvanceCounter only moves the counter forward; a stale write from a slower
// concurrent request cannot roll it back and reopen the replay window.
func (s *PGStorage) AdvanceCounter(ctx context.Context, userID uuid.UUID, lastCounter int64) error {
	const query = `
		UPDATE two_factor_secrets
		SET last_counter = GREATEST(last_counter, $2), updated_at = now()
		WHERE user_id = $1`

	tag, err := s.pool.Exec(ctx, query, userID, lastCounter)
	if err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *PGStorage) Delete(ctx context.Context, userID uuid.UUID) error {
	const query = `DELETE FROM two_factor_secrets WHERE user_id = $1`

	if _, err := s.pool.Exec(ctx, query, userID); err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	return nil
}
