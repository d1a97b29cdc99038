package ledger

import (
	"sort"

	"github.com/lgndcraft2/ledger/internal/money"
)

type Tab string

const (
	TabHome         Tab = "home"
	TabTransactions Tab = "transactions"
	TabDebts        Tab = "debts"
)

type FilterType string

const (
	FilterAll      FilterType = "ALL"
	FilterSale     FilterType = FilterType(Sale)
	FilterPurchase FilterType = FilterType(Purchase)
)

// Filter returns the transactions visible for a tab and type filter, keeping
// their order. The debts tab ignores the type filter. The input is not touched.
func Filter(txns []Transaction, tab Tab, ft FilterType) []Transaction {
	out := make([]Transaction, 0, len(txns))
	for _, t := range txns {
		if keep(t, tab, ft) {
			out = append(out, t)
		}
	}
	return out
}

func keep(t Transaction, tab Tab, ft FilterType) bool {
	if tab == TabDebts {
		return t.IsDebt()
	}
	if ft == FilterAll {
		return true
	}
	return FilterType(t.Type) == ft
}

// PartyBalance is the outstanding total for one counterpart.
type PartyBalance struct {
	Party   string          `json:"party"`
	Type    TransactionType `json:"type"`
	Balance money.Amount    `json:"balance"`
}

// PartyBalances sums balances per party for one transaction type and keeps
// the parties that still owe (or are owed) something, largest first.
func PartyBalances(txns []Transaction, typ TransactionType) []PartyBalance {
	totals := map[string]money.Amount{}
	var order []string
	for _, t := range txns {
		if t.Type != typ {
			continue
		}
		cur, seen := totals[t.Party]
		if !seen {
			order = append(order, t.Party)
		}
		totals[t.Party] = cur.Add(t.Balance)
	}

	out := make([]PartyBalance, 0, len(order))
	for _, p := range order {
		if b := totals[p]; b.IsPositive() {
			out = append(out, PartyBalance{Party: p, Type: typ, Balance: b})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Balance.Cmp(out[j].Balance.Decimal); c != 0 {
			return c > 0
		}
		return out[i].Party < out[j].Party
	})
	return out
}
