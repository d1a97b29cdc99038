package events

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/lgndcraft2/ledger/internal/ledger"
	"github.com/lgndcraft2/ledger/internal/money"
)

// RoutingKey is the key transaction.recorded events are published under.
const RoutingKey = "transaction.recorded"

var ErrMalformed = errors.New("malformed event")

// TransactionRecorded is published after a transaction is stored. It carries
// everything the receipt needs so consumers never read the database.
type TransactionRecorded struct {
	EventID     uuid.UUID          `json:"event_id"`
	UserID      uuid.UUID          `json:"user_id"`
	Phone       string             `json:"phone"`
	Transaction ledger.Transaction `json:"transaction"`
	AmountPaid  money.Amount       `json:"amount_paid"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

func NewTransactionRecorded(userID uuid.UUID, phone string, txn ledger.Transaction, paid money.Amount) *TransactionRecorded {
	return &TransactionRecorded{
		EventID:     uuid.New(),
		UserID:      userID,
		Phone:       phone,
		Transaction: txn,
		AmountPaid:  paid,
		OccurredAt:  time.Now().UTC(),
	}
}

func (m *TransactionRecorded) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionRecordedFromJSON decodes and sanity-checks an event body.
func TransactionRecordedFromJSON(data []byte) (*TransactionRecorded, error) {
	var msg TransactionRecorded
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, errors.Join(ErrMalformed, err)
	}
	if msg.EventID == uuid.Nil || msg.Phone == "" {
		return nil, ErrMalformed
	}
	if err := msg.Transaction.Validate(); err != nil {
		return nil, errors.Join(ErrMalformed, err)
	}
	return &msg, nil
}
