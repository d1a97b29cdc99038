package events

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lgndcraft2/ledger/internal/ledger"
	"github.com/lgndcraft2/ledger/internal/money"
)

func sampleEvent() *TransactionRecorded {
	txn := ledger.Transaction{
		ID: 9, Type: ledger.Sale, Party: "Tola", Item: "Rice", Quantity: 2,
		Date: "2025-03-01 10:00:00", Amount: money.FromInt(1000), Balance: money.FromInt(700),
	}
	return NewTransactionRecorded(uuid.New(), "08000000000", txn, money.FromInt(300))
}

func TestEventRoundTrip(t *testing.T) {
	in := sampleEvent()
	body, err := in.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	out, err := TransactionRecordedFromJSON(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.EventID != in.EventID || out.Phone != in.Phone || !out.Transaction.Balance.Eq(money.FromInt(700)) {
		t.Fatalf("decoded %+v", out)
	}
}

func TestDispatch(t *testing.T) {
	good, _ := sampleEvent().ToJSON()
	ok := func(context.Context, *TransactionRecorded) error { return nil }
	fail := func(context.Context, *TransactionRecorded) error { return errors.New("twilio down") }

	tests := []struct {
		name string
		body []byte
		h    Handler
		want Outcome
	}{
		{"handled", good, ok, Ack},
		{"handler error requeues", good, fail, Requeue},
		{"not json", []byte("{"), ok, Drop},
		{"missing phone", []byte(`{"event_id":"` + uuid.NewString() + `","transaction":{"type":"SALE"}}`), ok, Drop},
		{"bad transaction", []byte(`{"event_id":"` + uuid.NewString() + `","phone":"1","transaction":{"type":"GIFT"}}`), ok, Drop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Dispatch(context.Background(), tt.body, tt.h, zerolog.Nop()); got != tt.want {
				t.Fatalf("Dispatch = %v, want %v", got, tt.want)
			}
		})
	}
}
