package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("user not found")

// Users is the phone-keyed account table.
type Users struct {
	Pool *pgxpool.Pool
}

func NewUsers(pool *pgxpool.Pool) *Users {
	return &Users{Pool: pool}
}

// UpsertByPhone returns the user for phone, creating it on first sign-in.
func (u *Users) UpsertByPhone(ctx context.Context, phone string) (uuid.UUID, error) {
	var id uuid.UUID
	err := u.Pool.QueryRow(ctx,
		`INSERT INTO users (id, phone)
		 VALUES ($1, $2)
		 ON CONFLICT (phone) DO UPDATE SET last_seen_at = NOW()
		 RETURNING id`,
		uuid.New(), phone,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upsert user: %w", err)
	}
	return id, nil
}

func (u *Users) Phone(ctx context.Context, id uuid.UUID) (string, error) {
	var phone string
	err := u.Pool.QueryRow(ctx, `SELECT phone FROM users WHERE id = $1`, id).Scan(&phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup user phone: %w", err)
	}
	return phone, nil
}

func (u *Users) Touch(ctx context.Context, id uuid.UUID) error {
	_, err := u.Pool.Exec(ctx, `UPDATE users SET last_seen_at = NOW() WHERE id = $1`, id)
	return err
}
