package transactions

import (
	"errors"
	"time"

	"github.com/lgndcraft2/ledger/internal/ledger"
	"github.com/lgndcraft2/ledger/internal/money"
)

// DateLayout is how transaction dates go over the wire.
const DateLayout = "2006-01-02 15:04:05"

// RecentLimit is how many transactions the dashboard returns.
const RecentLimit = 50

var (
	ErrNoOpenDebt     = errors.New("nothing is owed for this party")
	ErrExceedsBalance = errors.New("payment is more than what is owed")
)

// openRow is a transaction with something still owed on it.
type openRow struct {
	ID       int64
	OpenKobo int64
}

// allocate spreads amount over the open rows in order, settling each before
// moving to the next. It returns what to add to each row's paid amount.
func allocate(open []openRow, amount int64) ([]int64, error) {
	if len(open) == 0 {
		return nil, ErrNoOpenDebt
	}
	var owed int64
	for _, o := range open {
		owed += o.OpenKobo
	}
	if amount > owed {
		return nil, ErrExceedsBalance
	}

	out := make([]int64, len(open))
	left := amount
	for i, o := range open {
		if left == 0 {
			break
		}
		out[i] = min(left, o.OpenKobo)
		left -= out[i]
	}
	return out, nil
}

// row mirrors one transactions row; amounts are kobo.
type row struct {
	ID          int64
	Type        string
	Party       string
	Item        string
	Quantity    int
	TotalKobo   int64
	BalanceKobo int64
	CreatedAt   time.Time
}

func (r row) toLedger() ledger.Transaction {
	return ledger.Transaction{
		ID:       r.ID,
		Type:     ledger.TransactionType(r.Type),
		Party:    r.Party,
		Item:     r.Item,
		Quantity: r.Quantity,
		Date:     r.CreatedAt.UTC().Format(DateLayout),
		Amount:   money.FromKobo(r.TotalKobo),
		Balance:  money.FromKobo(r.BalanceKobo),
	}
}
