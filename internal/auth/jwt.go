package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const localsUserID = "user_id"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoUser       = errors.New("user not authenticated")
)

// Issuer signs and checks HS256 session tokens carrying user_id and exp.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (i *Issuer) Issue(userID uuid.UUID) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"iat":     i.now().Unix(),
		"exp":     i.now().Add(i.ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Parse validates the signature and expiry and returns the user id.
func (i *Issuer) Parse(tokenStr string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, ErrInvalidToken
	}
	raw, ok := claims["user_id"].(string)
	if !ok {
		return uuid.Nil, ErrInvalidToken
	}
	uid, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return uid, nil
}

// Toucher records that a user was seen.
type Toucher interface {
	Touch(ctx context.Context, id uuid.UUID) error
}

// Middleware rejects requests without a valid bearer token and stores the
// user id in c.Locals. touch may be nil.
func Middleware(i *Issuer, touch Toucher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		h := c.Get(fiber.HeaderAuthorization)
		if h == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing token")
		}
		scheme, tok, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tok) == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		uid, err := i.Parse(strings.TrimSpace(tok))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}
		c.Locals(localsUserID, uid)

		// best effort, never blocks the request
		if touch != nil {
			go func(id uuid.UUID) {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = touch.Touch(ctx, id)
			}(uid)
		}
		return c.Next()
	}
}

// UserID returns the id stored by Middleware.
func UserID(c *fiber.Ctx) (uuid.UUID, error) {
	uid, ok := c.Locals(localsUserID).(uuid.UUID)
	if !ok || uid == uuid.Nil {
		return uuid.Nil, ErrNoUser
	}
	return uid, nil
}
