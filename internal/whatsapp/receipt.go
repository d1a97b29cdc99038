package whatsapp

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lgndcraft2/ledger/internal/events"
	"github.com/lgndcraft2/ledger/internal/ledger"
	"github.com/lgndcraft2/ledger/internal/money"
)

type TextSender interface {
	Send(ctx context.Context, phone, message string) error
}

// Receipt is the confirmation text sent to the trader after a transaction
// is recorded.
func Receipt(ev *events.TransactionRecorded) string {
	t := ev.Transaction
	var b strings.Builder
	if t.Type == ledger.Sale {
		b.WriteString("✅ *Sale Recorded!*\n")
		fmt.Fprintf(&b, "Customer: %s\n", t.Party)
		fmt.Fprintf(&b, "Item: %s\n", t.Item)
		fmt.Fprintf(&b, "Amount: %s\n", money.Format(t.Amount))
		fmt.Fprintf(&b, "Balance Due: %s", money.Format(t.Balance))
		return b.String()
	}
	b.WriteString("✅ *Purchase Recorded!*\n")
	fmt.Fprintf(&b, "Supplier: %s\n", t.Party)
	fmt.Fprintf(&b, "Item: %s\n", t.Item)
	fmt.Fprintf(&b, "Cost: %s", money.Format(t.Amount))
	if t.IsDebt() {
		fmt.Fprintf(&b, "\nYou Owe: %s", money.Format(t.Balance))
	}
	return b.String()
}

// ReceiptHandler sends a receipt for every recorded transaction.
func ReceiptHandler(sender TextSender, log zerolog.Logger) events.Handler {
	return func(ctx context.Context, ev *events.TransactionRecorded) error {
		if err := sender.Send(ctx, ev.Phone, Receipt(ev)); err != nil {
			return fmt.Errorf("send receipt: %w", err)
		}
		log.Info().Str("event_id", ev.EventID.String()).Int64("transaction_id", ev.Transaction.ID).Msg("receipt sent")
		return nil
	}
}
