package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// UserRepo provides access to document-owner accounts.
type UserRepo interface {
	GetOrCreateByEmail(ctx context.Context, email string) (uuid.UUID, error)
	Ensure(ctx context.Context, id uuid.UUID, email string) error
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type userRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new UserRepo instance.
func NewUserRepo(db *sql.DB) UserRepo {
	return &userRepo{db: db}
}

func (r *userRepo) GetOrCreateByEmail(ctx context.Context, email string) (uuid.UUID, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (email) VALUES ($1)
		ON CONFLICT (email) DO NOTHING
	`, email)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert user: %w", err)
	}

	var idStr string
	err = r.db.QueryRowContext(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("query user: %w", err)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse user ID: %w", err)
	}
	return id, nil
}

// Ensure upserts an owner row under a caller-supplied id. Bearer identities
// derive their id deterministically from the email, so replays of the same
// owner never fork into two accounts.
func (r *userRepo) Ensure(ctx context.Context, id uuid.UUID, email string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email) VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
	`, id.String(), email)
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

func (r *userRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = $1`, id.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query user: %w", err)
	}
	return true, nil
}
