package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lgndcraft2/ledger/internal/money"
)

var (
	ErrInvalidType        = errors.New("type must be SALE or PURCHASE")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidSnapshot    = errors.New("invalid dashboard snapshot")
	ErrInvalidPayment     = errors.New("invalid payment")
)

type TransactionType string

const (
	Sale     TransactionType = "SALE"
	Purchase TransactionType = "PURCHASE"
)

func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(strings.ToUpper(strings.TrimSpace(s))); t {
	case Sale, Purchase:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
}

// Transaction is one recorded sale or purchase as the API reports it.
// Balance is computed by the server; clients only read it.
type Transaction struct {
	ID       int64           `json:"id"`
	Type     TransactionType `json:"type"`
	Party    string          `json:"party"`
	Item     string          `json:"item"`
	Quantity int             `json:"quantity,omitempty"`
	Date     string          `json:"date"` // "YYYY-MM-DD HH:MM:SS"
	Amount   money.Amount    `json:"amount"`
	Balance  money.Amount    `json:"balance"`
}

// IsDebt reports whether something is still owed on the transaction.
func (t Transaction) IsDebt() bool {
	return t.Balance.IsPositive()
}

// DisplayDate is the part of Date before the first space.
func (t Transaction) DisplayDate() string {
	d, _, _ := strings.Cut(strings.TrimSpace(t.Date), " ")
	return d
}

func (t Transaction) Validate() error {
	if _, err := ParseTransactionType(string(t.Type)); err != nil {
		return fmt.Errorf("%w: id %d: %v", ErrInvalidTransaction, t.ID, err)
	}
	if t.Balance.IsNegative() {
		return fmt.Errorf("%w: id %d: negative balance %s", ErrInvalidTransaction, t.ID, t.Balance)
	}
	if t.Amount.IsNegative() {
		return fmt.Errorf("%w: id %d: negative amount %s", ErrInvalidTransaction, t.ID, t.Amount)
	}
	return nil
}

type DashboardStats struct {
	TotalSales  money.Amount `json:"total_sales"`
	ActiveDebts money.Amount `json:"active_debts"`
}

// Snapshot is the combined payload of GET /api/dashboard.
type Snapshot struct {
	Stats        DashboardStats `json:"stats"`
	Transactions []Transaction  `json:"transactions"`
}

func EmptySnapshot() Snapshot {
	return Snapshot{Transactions: []Transaction{}}
}

func (s Snapshot) Validate() error {
	if s.Stats.TotalSales.IsNegative() || s.Stats.ActiveDebts.IsNegative() {
		return fmt.Errorf("%w: negative stats", ErrInvalidSnapshot)
	}
	for _, t := range s.Transactions {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
		}
	}
	return nil
}

// NewTransactionRequest is the body of POST /api/transaction/add. AmountPaid
// is always explicit on the wire; see ResolveAmountPaid.
type NewTransactionRequest struct {
	Type        TransactionType `json:"type"`
	PartyName   string          `json:"party_name"`
	ItemName    string          `json:"item_name"`
	Quantity    int             `json:"quantity"`
	TotalAmount money.Amount    `json:"total_amount"`
	AmountPaid  money.Amount    `json:"amount_paid"`
}

func (r NewTransactionRequest) Validate() error {
	if _, err := ParseTransactionType(string(r.Type)); err != nil {
		return err
	}
	if strings.TrimSpace(r.PartyName) == "" {
		return fmt.Errorf("%w: party_name is required", ErrInvalidTransaction)
	}
	if strings.TrimSpace(r.ItemName) == "" {
		return fmt.Errorf("%w: item_name is required", ErrInvalidTransaction)
	}
	if r.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", ErrInvalidTransaction)
	}
	if r.TotalAmount.IsNegative() {
		return fmt.Errorf("%w: total_amount must not be negative", ErrInvalidTransaction)
	}
	if r.AmountPaid.IsNegative() {
		return fmt.Errorf("%w: amount_paid must not be negative", ErrInvalidTransaction)
	}
	return nil
}

// Balance is what remains owed after AmountPaid; overpayment settles to zero.
func (r NewTransactionRequest) Balance() money.Amount {
	b := r.TotalAmount.Sub(r.AmountPaid)
	if b.IsNegative() {
		return money.Zero
	}
	return b
}

// ResolveAmountPaid applies the "paid in full unless told otherwise" rule:
// a blank paid field means the whole total was paid. Anything else is
// converted as entered; range checks belong to the server.
func ResolveAmountPaid(total money.Amount, paid string) (money.Amount, error) {
	if strings.TrimSpace(paid) == "" {
		return total, nil
	}
	return money.FromInput(paid)
}

// PaymentRequest is the body of POST /api/debts/pay. Type names the side of
// the ledger being settled: SALE for money collected from a customer,
// PURCHASE for money paid to a supplier.
type PaymentRequest struct {
	Party  string          `json:"party"`
	Type   TransactionType `json:"type"`
	Amount money.Amount    `json:"amount"`
}

func (r PaymentRequest) Validate() error {
	if _, err := ParseTransactionType(string(r.Type)); err != nil {
		return err
	}
	if strings.TrimSpace(r.Party) == "" {
		return fmt.Errorf("%w: party is required", ErrInvalidPayment)
	}
	if !r.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", ErrInvalidPayment)
	}
	return nil
}

// Payment is a stored debt payment and what the party still owes after it.
type Payment struct {
	ID        int64           `json:"id"`
	Party     string          `json:"party"`
	Type      TransactionType `json:"type"`
	Amount    money.Amount    `json:"amount"`
	Remaining money.Amount    `json:"remaining"`
}
