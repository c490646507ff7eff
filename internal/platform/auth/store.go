package auth

import (
	"context"
	"database/sql"
	"errors"
)

type Account struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         string
}

type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (*Account, error)
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) AccountStore {
	return &Store{db: db}
}

// GetByEmail returns nil, nil when no user has that email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*Account, error) {
	const q = `
SELECT id, name, email, password, role
FROM users
WHERE email = ?
LIMIT 1
`
	var a Account
	err := s.db.QueryRowContext(ctx, q, email).Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
