package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dangtiendungai/Twibby/pkg/pg"
)

// User is the account profile needed by the feature modules. The email is
// used as the account label in authenticator apps.
type User struct {
	ID        uuid.UUID
	Email     string
	Username  string
	CreatedAt time.Time
}

// UserStorage looks up users for identity resolution.
type UserStorage interface {
	// GetUserByID returns the user or ErrUserNotFound.
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetUserByEmail returns the user or ErrUserNotFound.
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

// PGUserStorage implements UserStorage on PostgreSQL.
type PGUserStorage struct {
	pool *pgxpool.Pool
}

// NewPGUserStorage creates a PostgreSQL-backed user storage.
func NewPGUserStorage(pool *pgxpool.Pool) *PGUserStorage {
	return &PGUserStorage{pool: pool}
}

func (s *PGUserStorage) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	const query = `
		SELECT id, email, username, created_at
		FROM users
		WHERE id = $1`

	var user User
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.CreatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, errors.Join(ErrStorageFailure, err)
	}
	return &user, nil
}

func (s *PGUserStorage) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	const query = `
		SELECT id, email, username, created_at
		FROM users
		WHERE lower(email) = lower($1)`

	var user User
	err := s.pool.QueryRow(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.CreatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, errors.Join(ErrStorageFailure, err)
	}
	return &user, nil
}
