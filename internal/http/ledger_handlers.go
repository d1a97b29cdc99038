package http

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lgndcraft2/ledger/internal/audit"
	"github.com/lgndcraft2/ledger/internal/auth"
	"github.com/lgndcraft2/ledger/internal/events"
	"github.com/lgndcraft2/ledger/internal/insight"
	"github.com/lgndcraft2/ledger/internal/ledger"
	"github.com/lgndcraft2/ledger/internal/money"
	"github.com/lgndcraft2/ledger/internal/reports"
	"github.com/lgndcraft2/ledger/internal/transactions"
)

// LedgerStore is the transaction persistence the handlers need.
type LedgerStore interface {
	Create(ctx context.Context, userID uuid.UUID, req ledger.NewTransactionRequest, entry audit.Entry) (ledger.Transaction, error)
	Recent(ctx context.Context, userID uuid.UUID, limit int) ([]ledger.Transaction, error)
	Between(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]ledger.Transaction, error)
	Stats(ctx context.Context, userID uuid.UUID) (ledger.DashboardStats, error)
	PartyBalances(ctx context.Context, userID uuid.UUID, typ ledger.TransactionType) ([]ledger.PartyBalance, error)
	RecordPayment(ctx context.Context, userID uuid.UUID, req ledger.PaymentRequest, entry audit.Entry) (ledger.Payment, error)
}

type LedgerHandler struct {
	Store  LedgerStore
	Users  UserStore
	Events events.Publisher
	Log    zerolog.Logger
	Now    func() time.Time
}

// addTransactionRequest differs from ledger.NewTransactionRequest only in
// that amount_paid may be omitted, which means paid in full.
type addTransactionRequest struct {
	Type        string        `json:"type"`
	PartyName   string        `json:"party_name"`
	ItemName    string        `json:"item_name"`
	Quantity    int           `json:"quantity"`
	TotalAmount money.Amount  `json:"total_amount"`
	AmountPaid  *money.Amount `json:"amount_paid"`
}

type addTransactionResponse struct {
	OK      bool         `json:"ok"`
	ID      int64        `json:"id"`
	Balance money.Amount `json:"balance"`
}

type payDebtRequest struct {
	Party  string       `json:"party"`
	Type   string       `json:"type"`
	Amount money.Amount `json:"amount"`
}

type payDebtResponse struct {
	OK        bool         `json:"ok"`
	ID        int64        `json:"id"`
	Remaining money.Amount `json:"remaining"`
}

type debtsResponse struct {
	Customers []ledger.PartyBalance `json:"customers"`
	Suppliers []ledger.PartyBalance `json:"suppliers"`
}

// Dashboard returns stats and the latest transactions in one payload.
func (h *LedgerHandler) Dashboard(c *fiber.Ctx) error {
	uid, err := auth.UserID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var snap ledger.Snapshot
	g, ctx := errgroup.WithContext(userContext(c))
	g.Go(func() error {
		var err error
		snap.Stats, err = h.Store.Stats(ctx, uid)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Transactions, err = h.Store.Recent(ctx, uid, transactions.RecentLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if snap.Transactions == nil {
		snap.Transactions = []ledger.Transaction{}
	}
	return c.JSON(snap)
}

// AddTransaction records a sale or purchase.
func (h *LedgerHandler) AddTransaction(c *fiber.Ctx) error {
	uid, err := auth.UserID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var body addTransactionRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	typ, err := ledger.ParseTransactionType(body.Type)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "type must be SALE or PURCHASE")
	}
	req := ledger.NewTransactionRequest{
		Type:        typ,
		PartyName:   body.PartyName,
		ItemName:    body.ItemName,
		Quantity:    body.Quantity,
		TotalAmount: body.TotalAmount,
		AmountPaid:  body.TotalAmount,
	}
	if body.AmountPaid != nil {
		req.AmountPaid = *body.AmountPaid
	}
	if err := req.Validate(); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ctx := userContext(c)
	entry := audit.Entry{
		UserID:     &uid,
		Action:     audit.ActionTransactionCreate,
		EntityType: "transaction",
		IP:         optional(c.IP()),
		UserAgent:  optional(c.Get(fiber.HeaderUserAgent)),
		Metadata: map[string]any{
			"type":         string(req.Type),
			"total_amount": req.TotalAmount.String(),
			"amount_paid":  req.AmountPaid.String(),
		},
	}
	txn, err := h.Store.Create(ctx, uid, req, entry)
	if err != nil {
		if errors.Is(err, money.ErrInvalidMoney) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return err
	}

	h.publish(ctx, uid, txn, req.AmountPaid)
	return c.Status(fiber.StatusCreated).JSON(addTransactionResponse{OK: true, ID: txn.ID, Balance: txn.Balance})
}

// publish is best effort; the transaction is already stored.
func (h *LedgerHandler) publish(ctx context.Context, uid uuid.UUID, txn ledger.Transaction, paid money.Amount) {
	if h.Events == nil {
		return
	}
	phone, err := h.Users.Phone(ctx, uid)
	if err != nil {
		h.Log.Warn().Err(err).Int64("transaction_id", txn.ID).Msg("skip event: no phone")
		return
	}
	if err := h.Events.PublishTransactionRecorded(ctx, events.NewTransactionRecorded(uid, phone, txn, paid)); err != nil {
		h.Log.Warn().Err(err).Int64("transaction_id", txn.ID).Msg("publish transaction.recorded failed")
	}
}

// Summary returns the insight text for the user's current stats.
func (h *LedgerHandler) Summary(c *fiber.Ctx) error {
	uid, err := auth.UserID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}
	stats, err := h.Store.Stats(userContext(c), uid)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"summary": insight.Compose(stats)})
}

// Debts lists customers who owe the trader and suppliers the trader owes.
func (h *LedgerHandler) Debts(c *fiber.Ctx) error {
	uid, err := auth.UserID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var out debtsResponse
	g, ctx := errgroup.WithContext(userContext(c))
	g.Go(func() error {
		var err error
		out.Customers, err = h.Store.PartyBalances(ctx, uid, ledger.Sale)
		return err
	})
	g.Go(func() error {
		var err error
		out.Suppliers, err = h.Store.PartyBalances(ctx, uid, ledger.Purchase)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if out.Customers == nil {
		out.Customers = []ledger.PartyBalance{}
	}
	if out.Suppliers == nil {
		out.Suppliers = []ledger.PartyBalance{}
	}
	return c.JSON(out)
}

// PayDebt records money collected from a customer (type SALE) or paid to a
// supplier (type PURCHASE) against that party's open balance.
func (h *LedgerHandler) PayDebt(c *fiber.Ctx) error {
	uid, err := auth.UserID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var body payDebtRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	typ, err := ledger.ParseTransactionType(body.Type)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "type must be SALE or PURCHASE")
	}
	req := ledger.PaymentRequest{Party: strings.TrimSpace(body.Party), Type: typ, Amount: body.Amount}
	if err := req.Validate(); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	entry := audit.Entry{
		UserID:     &uid,
		Action:     audit.ActionDebtPayment,
		EntityType: "debt_payment",
		IP:         optional(c.IP()),
		UserAgent:  optional(c.Get(fiber.HeaderUserAgent)),
		Metadata: map[string]any{
			"type":   string(req.Type),
			"party":  req.Party,
			"amount": req.Amount.String(),
		},
	}
	p, err := h.Store.RecordPayment(userContext(c), uid, req, entry)
	switch {
	case errors.Is(err, transactions.ErrNoOpenDebt):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, transactions.ErrExceedsBalance), errors.Is(err, money.ErrInvalidMoney):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case err != nil:
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(payDebtResponse{OK: true, ID: p.ID, Remaining: p.Remaining})
}

// Statement renders the transactions in ?from&to (YYYY-MM-DD) as a PDF.
func (h *LedgerHandler) Statement(c *fiber.Ctx) error {
	uid, err := auth.UserID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	period, err := reports.ParsePeriod(c.Query("from"), c.Query("to"), now)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ctx := userContext(c)
	txns, err := h.Store.Between(ctx, uid, period.From, period.End())
	if err != nil {
		return err
	}
	phone, err := h.Users.Phone(ctx, uid)
	if err != nil {
		return err
	}

	st := reports.Statement{Phone: phone, Period: period, Transactions: txns, GeneratedAt: now}
	var buf bytes.Buffer
	if err := reports.WritePDF(&buf, st); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "pdf build failed")
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+st.Filename()+`"`)
	return c.Send(buf.Bytes())
}
