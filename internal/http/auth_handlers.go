package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lgndcraft2/ledger/internal/audit"
	"github.com/lgndcraft2/ledger/internal/otp"
)

type CodeService interface {
	Issue(ctx context.Context, phone string) error
	Verify(ctx context.Context, phone, code string) error
}

type UserStore interface {
	UpsertByPhone(ctx context.Context, phone string) (uuid.UUID, error)
	Phone(ctx context.Context, id uuid.UUID) (string, error)
}

type TokenIssuer interface {
	Issue(userID uuid.UUID) (string, error)
}

type Auditor interface {
	Record(ctx context.Context, e audit.Entry) error
}

type AuthHandler struct {
	Codes  CodeService
	Users  UserStore
	Tokens TokenIssuer
	Audit  Auditor
	Log    zerolog.Logger
}

type loginRequest struct {
	Phone string `json:"phone"`
}

type verifyRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

type authResponse struct {
	Token string `json:"token"`
}

// Login sends a one-time code to the phone number.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var body loginRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	phone, err := otp.NormalizePhone(body.Phone)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "phone must have at least 10 digits")
	}

	ctx := userContext(c)
	if err := h.Codes.Issue(ctx, phone); err != nil {
		h.Log.Error().Err(err).Msg("issue login code")
		return fiber.NewError(fiber.StatusBadGateway, "could not send code")
	}

	h.audit(ctx, c, nil, audit.ActionLogin)
	return c.JSON(fiber.Map{"ok": true})
}

// Verify exchanges a valid code for a session token, creating the user on
// first sign-in.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	var body verifyRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	phone, err := otp.NormalizePhone(body.Phone)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "phone must have at least 10 digits")
	}
	if len(body.Code) != otp.CodeLen {
		return fiber.NewError(fiber.StatusBadRequest, "code must be 6 digits")
	}

	ctx := userContext(c)
	switch err := h.Codes.Verify(ctx, phone, body.Code); {
	case err == nil:
	case errors.Is(err, otp.ErrExpired):
		return fiber.NewError(fiber.StatusUnauthorized, "code expired")
	case errors.Is(err, otp.ErrTooManyAttempts):
		return fiber.NewError(fiber.StatusUnauthorized, "too many attempts")
	case errors.Is(err, otp.ErrInvalidCode):
		return fiber.NewError(fiber.StatusUnauthorized, "invalid code")
	default:
		return err
	}

	userID, err := h.Users.UpsertByPhone(ctx, phone)
	if err != nil {
		return err
	}
	token, err := h.Tokens.Issue(userID)
	if err != nil {
		return err
	}

	h.audit(ctx, c, &userID, audit.ActionVerify)
	return c.JSON(authResponse{Token: token})
}

func (h *AuthHandler) audit(ctx context.Context, c *fiber.Ctx, uid *uuid.UUID, action string) {
	if h.Audit == nil {
		return
	}
	err := h.Audit.Record(ctx, audit.Entry{
		UserID:     uid,
		Action:     action,
		EntityType: "user",
		IP:         optional(c.IP()),
		UserAgent:  optional(c.Get(fiber.HeaderUserAgent)),
	})
	if err != nil {
		h.Log.Warn().Err(err).Str("action", action).Msg("audit write failed")
	}
}
