package whatsapp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lgndcraft2/ledger/internal/events"
	"github.com/lgndcraft2/ledger/internal/ledger"
	"github.com/lgndcraft2/ledger/internal/money"
)

func TestTwilioSend(t *testing.T) {
	var gotPath, gotTo, gotBody, gotUser string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, _, _ = r.BasicAuth()
		_ = r.ParseForm()
		gotTo = r.PostForm.Get("To")
		gotBody = r.PostForm.Get("Body")
		if gotTo == "whatsapp:fail" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewTwilio("AC123", "tok", "whatsapp:+14155238886")
	c.BaseURL = srv.URL

	if err := c.Send(context.Background(), "+2348000000000", "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotPath != "/Accounts/AC123/Messages.json" || gotUser != "AC123" {
		t.Fatalf("path = %s user = %s", gotPath, gotUser)
	}
	if gotTo != "whatsapp:+2348000000000" || gotBody != "hello" {
		t.Fatalf("To = %q Body = %q", gotTo, gotBody)
	}

	if err := c.Send(context.Background(), "fail", "x"); err == nil {
		t.Fatal("expected error for 400")
	}
}

func event(typ ledger.TransactionType, amount, balance int64) *events.TransactionRecorded {
	return events.NewTransactionRecorded(uuid.New(), "08000000000", ledger.Transaction{
		ID: 1, Type: typ, Party: "Tola", Item: "Rice",
		Amount: money.FromInt(amount), Balance: money.FromInt(balance),
	}, money.FromInt(amount-balance))
}

func TestReceipt(t *testing.T) {
	tests := []struct {
		name string
		ev   *events.TransactionRecorded
		want string
	}{
		{
			name: "sale",
			ev:   event(ledger.Sale, 1000, 700),
			want: "✅ *Sale Recorded!*\nCustomer: Tola\nItem: Rice\nAmount: ₦1,000\nBalance Due: ₦700",
		},
		{
			name: "purchase paid",
			ev:   event(ledger.Purchase, 2500, 0),
			want: "✅ *Purchase Recorded!*\nSupplier: Tola\nItem: Rice\nCost: ₦2,500",
		},
		{
			name: "purchase on credit",
			ev:   event(ledger.Purchase, 2500, 500),
			want: "✅ *Purchase Recorded!*\nSupplier: Tola\nItem: Rice\nCost: ₦2,500\nYou Owe: ₦500",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Receipt(tt.ev); got != tt.want {
				t.Fatalf("Receipt =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

type fakeSender struct {
	phone string
	err   error
}

func (f *fakeSender) Send(_ context.Context, phone, _ string) error {
	f.phone = phone
	return f.err
}

func TestReceiptHandler(t *testing.T) {
	s := &fakeSender{}
	h := ReceiptHandler(s, zerolog.Nop())
	if err := h(context.Background(), event(ledger.Sale, 10, 0)); err != nil {
		t.Fatal(err)
	}
	if s.phone != "08000000000" {
		t.Fatalf("sent to %q", s.phone)
	}

	s.err = errors.New("down")
	if err := h(context.Background(), event(ledger.Sale, 10, 0)); !errors.Is(err, s.err) {
		t.Fatalf("err = %v", err)
	}
}
