package reports

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/lgndcraft2/ledger/internal/ledger"
	"github.com/lgndcraft2/ledger/internal/money"
)

func TestParsePeriod(t *testing.T) {
	now := time.Date(2025, 3, 15, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		from, to string
		want     string
		wantErr  error
	}{
		{name: "default window", want: "2025-02-14 to 2025-03-15"},
		{name: "one side blank uses default", from: "2025-01-01", want: "2025-02-14 to 2025-03-15"},
		{name: "explicit", from: "2025-01-01", to: "2025-01-31", want: "2025-01-01 to 2025-01-31"},
		{name: "bad from", from: "01/01/2025", to: "2025-01-31", wantErr: ErrBadFrom},
		{name: "bad to", from: "2025-01-01", to: "soon", wantErr: ErrBadTo},
		{name: "reversed", from: "2025-02-01", to: "2025-01-01", wantErr: ErrBadRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePeriod(tt.from, tt.to, now)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if p.String() != tt.want {
				t.Fatalf("period = %s, want %s", p, tt.want)
			}
		})
	}
}

func TestPeriodEndIsExclusive(t *testing.T) {
	p, _ := ParsePeriod("2025-01-01", "2025-01-31", time.Now())
	if got := p.End().Format(dayLayout); got != "2025-02-01" {
		t.Fatalf("End = %s", got)
	}
}

func sampleTxns() []ledger.Transaction {
	return []ledger.Transaction{
		{ID: 1, Type: ledger.Sale, Party: "Tola", Item: "Rice", Date: "2025-03-01 10:00:00", Amount: money.FromInt(1000), Balance: money.FromInt(700)},
		{ID: 2, Type: ledger.Purchase, Party: "Mill", Item: "Flour", Date: "2025-03-02 09:00:00", Amount: money.FromInt(400), Balance: money.FromInt(100)},
		{ID: 3, Type: ledger.Sale, Party: "Ade", Item: "Beans", Date: "2025-03-03 12:00:00", Amount: money.FromInt(250), Balance: money.Zero},
	}
}

func TestSummarize(t *testing.T) {
	got := Summarize(sampleTxns())
	if !got.Sales.Eq(money.FromInt(1250)) || !got.Purchases.Eq(money.FromInt(400)) {
		t.Fatalf("totals = %+v", got)
	}
	if !got.OwedToYou.Eq(money.FromInt(700)) || !got.OwedByYou.Eq(money.FromInt(100)) {
		t.Fatalf("owed = %+v", got)
	}
}

func TestWritePDF(t *testing.T) {
	p, _ := ParsePeriod("2025-03-01", "2025-03-31", time.Now())
	for _, txns := range [][]ledger.Transaction{sampleTxns(), nil} {
		var buf bytes.Buffer
		s := Statement{Phone: "08000000000", Period: p, Transactions: txns}
		if err := WritePDF(&buf, s); err != nil {
			t.Fatalf("WritePDF: %v", err)
		}
		if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
			t.Fatal("output is not a PDF")
		}
	}
}

func TestFilenameAndNaira(t *testing.T) {
	p, _ := ParsePeriod("2025-03-01", "2025-03-31", time.Now())
	if got := (Statement{Period: p}).Filename(); got != "ledger-statement-2025-03-01-to-2025-03-31.pdf" {
		t.Fatalf("Filename = %s", got)
	}
	if got := naira(money.FromInt(1500)); got != "NGN 1,500" {
		t.Fatalf("naira = %q", got)
	}
}
