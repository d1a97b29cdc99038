package transactions

import (
	"errors"
	"testing"
	"time"

	"github.com/lgndcraft2/ledger/internal/ledger"
	"github.com/lgndcraft2/ledger/internal/money"
)

func TestRowToLedger(t *testing.T) {
	lagos := time.FixedZone("WAT", 3600)
	r := row{
		ID: 3, Type: "SALE", Party: "Tola", Item: "Rice", Quantity: 2,
		TotalKobo: 150050, BalanceKobo: 70000,
		CreatedAt: time.Date(2025, 3, 1, 11, 30, 0, 0, lagos),
	}
	got := r.toLedger()

	if got.Type != ledger.Sale || got.Quantity != 2 {
		t.Fatalf("got %+v", got)
	}
	if !got.Amount.Eq(money.FromKobo(150050)) || money.Format(got.Amount) != "₦1,500.50" {
		t.Fatalf("amount = %s", got.Amount)
	}
	if !got.Balance.Eq(money.FromInt(700)) || !got.IsDebt() {
		t.Fatalf("balance = %s", got.Balance)
	}
	if got.Date != "2025-03-01 10:30:00" || got.DisplayDate() != "2025-03-01" {
		t.Fatalf("date = %q", got.Date)
	}
	if err := got.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestAllocate(t *testing.T) {
	open := []openRow{{ID: 1, OpenKobo: 300}, {ID: 2, OpenKobo: 500}, {ID: 3, OpenKobo: 200}}
	tests := []struct {
		name    string
		open    []openRow
		amount  int64
		want    []int64
		wantErr error
	}{
		{"settles oldest first", open, 600, []int64{300, 300, 0}, nil},
		{"partial on first row", open, 100, []int64{100, 0, 0}, nil},
		{"clears everything", open, 1000, []int64{300, 500, 200}, nil},
		{"more than owed", open, 1001, nil, ErrExceedsBalance},
		{"nothing owed", nil, 100, nil, ErrNoOpenDebt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := allocate(tt.open, tt.amount)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("allocate: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}
