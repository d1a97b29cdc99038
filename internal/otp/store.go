package otp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore keeps pending codes in the otp_codes table.
type PGStore struct {
	Pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{Pool: pool}
}

func (s *PGStore) Save(ctx context.Context, rec Record) error {
	_, err := s.Pool.Exec(ctx, `
INSERT INTO otp_codes (phone, code_hash, expires_at, attempts)
VALUES ($1, $2, $3, 0)
ON CONFLICT (phone) DO UPDATE
SET code_hash = EXCLUDED.code_hash, expires_at = EXCLUDED.expires_at, attempts = 0, created_at = NOW()
`, rec.Phone, rec.CodeHash, rec.ExpiresAt)
	return err
}

func (s *PGStore) Get(ctx context.Context, phone string) (Record, error) {
	rec := Record{Phone: phone}
	err := s.Pool.QueryRow(ctx,
		`SELECT code_hash, expires_at, attempts FROM otp_codes WHERE phone = $1`, phone,
	).Scan(&rec.CodeHash, &rec.ExpiresAt, &rec.Attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("select otp: %w", err)
	}
	return rec, nil
}

func (s *PGStore) ClaimAttempt(ctx context.Context, phone string, max int) (bool, error) {
	var attempts int
	err := s.Pool.QueryRow(ctx, `
UPDATE otp_codes SET attempts = attempts + 1
WHERE phone = $1 AND attempts < $2
RETURNING attempts`, phone, max).Scan(&attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("claim otp attempt: %w", err)
	}
	return true, nil
}

func (s *PGStore) Delete(ctx context.Context, phone string) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM otp_codes WHERE phone = $1`, phone)
	return err
}

// MemoryStore is a Store for tests and single-process dev runs.
type MemoryStore struct {
	mu   sync.Mutex
	recs map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: map[string]Record{}}
}

func (m *MemoryStore) Save(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.Attempts = 0
	m.recs[rec.Phone] = rec
	return nil
}

func (m *MemoryStore) Get(_ context.Context, phone string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[phone]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (m *MemoryStore) ClaimAttempt(_ context.Context, phone string, max int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[phone]
	if !ok || rec.Attempts >= max {
		return false, nil
	}
	rec.Attempts++
	m.recs[phone] = rec
	return true, nil
}

func (m *MemoryStore) Delete(_ context.Context, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.recs, phone)
	return nil
}
