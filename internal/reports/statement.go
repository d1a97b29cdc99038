package reports

import (
	"errors"
	"strings"
	"time"

	"github.com/lgndcraft2/ledger/internal/ledger"
	"github.com/lgndcraft2/ledger/internal/money"
)

const dayLayout = "2006-01-02"

// DefaultDays is the statement window when no range is given.
const DefaultDays = 30

var (
	ErrBadFrom  = errors.New("from must be YYYY-MM-DD")
	ErrBadTo    = errors.New("to must be YYYY-MM-DD")
	ErrBadRange = errors.New("from must not be after to")
)

// Period is an inclusive range of whole UTC days.
type Period struct {
	From time.Time
	To   time.Time
}

// ParsePeriod reads from/to (YYYY-MM-DD). When either is blank the period is
// the last DefaultDays days ending today.
func ParsePeriod(from, to string, now time.Time) (Period, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" || to == "" {
		end := now.UTC().Truncate(24 * time.Hour)
		return Period{From: end.AddDate(0, 0, -(DefaultDays - 1)), To: end}, nil
	}

	f, err := time.Parse(dayLayout, from)
	if err != nil {
		return Period{}, ErrBadFrom
	}
	t, err := time.Parse(dayLayout, to)
	if err != nil {
		return Period{}, ErrBadTo
	}
	if f.After(t) {
		return Period{}, ErrBadRange
	}
	return Period{From: f, To: t}, nil
}

// End is the exclusive upper bound for queries.
func (p Period) End() time.Time { return p.To.AddDate(0, 0, 1) }

func (p Period) String() string {
	return p.From.Format(dayLayout) + " to " + p.To.Format(dayLayout)
}

// Totals summarises a statement.
type Totals struct {
	Sales     money.Amount
	Purchases money.Amount
	OwedToYou money.Amount
	OwedByYou money.Amount
}

func Summarize(txns []ledger.Transaction) Totals {
	var t Totals
	for _, x := range txns {
		switch x.Type {
		case ledger.Sale:
			t.Sales = t.Sales.Add(x.Amount)
			t.OwedToYou = t.OwedToYou.Add(x.Balance)
		case ledger.Purchase:
			t.Purchases = t.Purchases.Add(x.Amount)
			t.OwedByYou = t.OwedByYou.Add(x.Balance)
		}
	}
	return t
}
