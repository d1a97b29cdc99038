package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const CodeLen = 6

var (
	ErrInvalidPhone    = errors.New("invalid phone number")
	ErrInvalidCode     = errors.New("invalid code")
	ErrExpired         = errors.New("code expired")
	ErrTooManyAttempts = errors.New("too many attempts")
	ErrNotFound        = errors.New("no pending code")
)

// Record is a pending code for one phone number.
type Record struct {
	Phone     string
	CodeHash  string
	ExpiresAt time.Time
	Attempts  int
}

type Store interface {
	Save(ctx context.Context, rec Record) error
	Get(ctx context.Context, phone string) (Record, error)
	// ClaimAttempt counts one attempt if fewer than max were made, in a single
	// atomic step, and reports whether the attempt may go ahead.
	ClaimAttempt(ctx context.Context, phone string, max int) (bool, error)
	Delete(ctx context.Context, phone string) error
}

// Sender delivers the code to the phone (SMS, WhatsApp, or a log line).
type Sender interface {
	Send(ctx context.Context, phone, message string) error
}

// Service issues and checks one-time login codes. Codes are stored as bcrypt
// hashes; a code is good for TTL and MaxAttempts tries.
type Service struct {
	Store       Store
	Sender      Sender
	TTL         time.Duration
	MaxAttempts int
	// DevCode, when set, replaces the random code.
	DevCode string
	Log     zerolog.Logger

	now func() time.Time
}

func NewService(store Store, sender Sender, ttl time.Duration, maxAttempts int, devCode string, log zerolog.Logger) *Service {
	return &Service{
		Store:       store,
		Sender:      sender,
		TTL:         ttl,
		MaxAttempts: maxAttempts,
		DevCode:     devCode,
		Log:         log,
		now:         time.Now,
	}
}

// NormalizePhone strips spaces and dashes and requires at least ten digits
// with an optional leading '+'.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r == ' ' || r == '-':
			continue
		case r == '+' && i == 0:
			b.WriteRune(r)
		case unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			return "", ErrInvalidPhone
		}
	}
	p := b.String()
	if len(strings.TrimPrefix(p, "+")) < 10 {
		return "", ErrInvalidPhone
	}
	return p, nil
}

// Issue creates a fresh code for phone, replacing any pending one, and sends it.
func (s *Service) Issue(ctx context.Context, phone string) error {
	code := s.DevCode
	if code == "" {
		var err error
		if code, err = randomCode(); err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash code: %w", err)
	}

	rec := Record{Phone: phone, CodeHash: string(hash), ExpiresAt: s.now().Add(s.TTL)}
	if err := s.Store.Save(ctx, rec); err != nil {
		return fmt.Errorf("save code: %w", err)
	}

	msg := fmt.Sprintf("Your ledger login code is %s. It expires in %d minutes.", code, int(s.TTL.Minutes()))
	if err := s.Sender.Send(ctx, phone, msg); err != nil {
		return fmt.Errorf("send code: %w", err)
	}
	s.Log.Info().Str("phone", maskPhone(phone)).Time("expires_at", rec.ExpiresAt).Msg("login code issued")
	return nil
}

// Verify checks code against the pending record. Every try is counted before
// the comparison, so concurrent guesses cannot get past MaxAttempts. A
// correct code consumes the record.
func (s *Service) Verify(ctx context.Context, phone, code string) error {
	rec, err := s.Store.Get(ctx, phone)
	if errors.Is(err, ErrNotFound) {
		return ErrInvalidCode
	}
	if err != nil {
		return fmt.Errorf("load code: %w", err)
	}

	if !s.now().Before(rec.ExpiresAt) {
		_ = s.Store.Delete(ctx, phone)
		return ErrExpired
	}

	ok, err := s.Store.ClaimAttempt(ctx, phone, s.MaxAttempts)
	if err != nil {
		return fmt.Errorf("count attempt: %w", err)
	}
	if !ok {
		_ = s.Store.Delete(ctx, phone)
		return ErrTooManyAttempts
	}

	if bcrypt.CompareHashAndPassword([]byte(rec.CodeHash), []byte(strings.TrimSpace(code))) != nil {
		return ErrInvalidCode
	}

	if err := s.Store.Delete(ctx, phone); err != nil {
		return fmt.Errorf("consume code: %w", err)
	}
	return nil
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func maskPhone(p string) string {
	if len(p) <= 4 {
		return p
	}
	return strings.Repeat("*", len(p)-4) + p[len(p)-4:]
}
