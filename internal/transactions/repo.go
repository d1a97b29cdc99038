package transactions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lgndcraft2/ledger/internal/audit"
	"github.com/lgndcraft2/ledger/internal/ledger"
	"github.com/lgndcraft2/ledger/internal/money"
)

const selectColumns = `id, type, party_name, item_name, quantity, total_kobo,
GREATEST(total_kobo - paid_kobo, 0) AS balance_kobo, created_at`

type Repo struct {
	Pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{Pool: pool}
}

// Create stores the transaction and its audit entry in one database
// transaction and returns the stored row.
func (r *Repo) Create(ctx context.Context, userID uuid.UUID, req ledger.NewTransactionRequest, entry audit.Entry) (ledger.Transaction, error) {
	total, err := money.ToKobo(req.TotalAmount)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("total_amount: %w", err)
	}
	paid, err := money.ToKobo(req.AmountPaid)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("amount_paid: %w", err)
	}

	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return ledger.Transaction{}, err
	}
	defer tx.Rollback(ctx)

	var out row
	err = tx.QueryRow(ctx, `
INSERT INTO transactions (user_id, type, party_name, item_name, quantity, total_kobo, paid_kobo)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+selectColumns,
		userID, string(req.Type), req.PartyName, req.ItemName, req.Quantity, total, paid,
	).Scan(&out.ID, &out.Type, &out.Party, &out.Item, &out.Quantity, &out.TotalKobo, &out.BalanceKobo, &out.CreatedAt)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	entry.EntityID = audit.Ptr(fmt.Sprint(out.ID))
	if err := audit.Write(ctx, tx, entry); err != nil {
		return ledger.Transaction{}, fmt.Errorf("write audit: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return ledger.Transaction{}, err
	}
	return out.toLedger(), nil
}

// RecordPayment settles a party's open transactions of one type, oldest
// first, and stores the payment with its audit entry. Row balances, party
// balances and dashboard stats all reflect it because the paid amounts move.
func (r *Repo) RecordPayment(ctx context.Context, userID uuid.UUID, req ledger.PaymentRequest, entry audit.Entry) (ledger.Payment, error) {
	amount, err := money.ToKobo(req.Amount)
	if err != nil {
		return ledger.Payment{}, fmt.Errorf("amount: %w", err)
	}

	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return ledger.Payment{}, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
SELECT id, total_kobo - paid_kobo
FROM transactions
WHERE user_id = $1 AND type = $2 AND party_name = $3 AND total_kobo > paid_kobo
ORDER BY created_at ASC, id ASC
FOR UPDATE`, userID, string(req.Type), req.Party)
	if err != nil {
		return ledger.Payment{}, fmt.Errorf("open transactions: %w", err)
	}
	open, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (openRow, error) {
		var o openRow
		err := row.Scan(&o.ID, &o.OpenKobo)
		return o, err
	})
	if err != nil {
		return ledger.Payment{}, fmt.Errorf("open transactions: %w", err)
	}

	parts, err := allocate(open, amount)
	if err != nil {
		return ledger.Payment{}, err
	}
	var owed int64
	for i, o := range open {
		owed += o.OpenKobo
		if parts[i] == 0 {
			continue
		}
		if _, err := tx.Exec(ctx, `UPDATE transactions SET paid_kobo = paid_kobo + $2 WHERE id = $1`, o.ID, parts[i]); err != nil {
			return ledger.Payment{}, fmt.Errorf("apply payment: %w", err)
		}
	}

	var id int64
	err = tx.QueryRow(ctx, `
INSERT INTO debt_payments (user_id, type, party_name, amount_kobo)
VALUES ($1, $2, $3, $4)
RETURNING id`, userID, string(req.Type), req.Party, amount).Scan(&id)
	if err != nil {
		return ledger.Payment{}, fmt.Errorf("insert payment: %w", err)
	}

	entry.EntityID = audit.Ptr(fmt.Sprint(id))
	if err := audit.Write(ctx, tx, entry); err != nil {
		return ledger.Payment{}, fmt.Errorf("write audit: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.Payment{}, err
	}

	return ledger.Payment{
		ID:        id,
		Party:     req.Party,
		Type:      req.Type,
		Amount:    money.FromKobo(amount),
		Remaining: money.FromKobo(owed - amount),
	}, nil
}

// Recent returns the newest transactions first.
func (r *Repo) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]ledger.Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = RecentLimit
	}
	return r.query(ctx, `
SELECT `+selectColumns+`
FROM transactions
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`, userID, limit)
}

// Between returns transactions created in [from, to), newest first.
func (r *Repo) Between(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]ledger.Transaction, error) {
	return r.query(ctx, `
SELECT `+selectColumns+`
FROM transactions
WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
ORDER BY created_at DESC, id DESC
LIMIT 2000`, userID, from, to)
}

// Stats computes total sales and what customers still owe.
func (r *Repo) Stats(ctx context.Context, userID uuid.UUID) (ledger.DashboardStats, error) {
	var sales, debts int64
	err := r.Pool.QueryRow(ctx, `
SELECT
  COALESCE(SUM(total_kobo) FILTER (WHERE type = 'SALE'), 0)::bigint,
  COALESCE(SUM(total_kobo - paid_kobo) FILTER (WHERE type = 'SALE' AND total_kobo > paid_kobo), 0)::bigint
FROM transactions
WHERE user_id = $1`, userID).Scan(&sales, &debts)
	if err != nil {
		return ledger.DashboardStats{}, fmt.Errorf("stats: %w", err)
	}
	return ledger.DashboardStats{TotalSales: money.FromKobo(sales), ActiveDebts: money.FromKobo(debts)}, nil
}

// PartyBalances sums outstanding balances per party for one type.
func (r *Repo) PartyBalances(ctx context.Context, userID uuid.UUID, typ ledger.TransactionType) ([]ledger.PartyBalance, error) {
	rows, err := r.Pool.Query(ctx, `
SELECT party_name, SUM(GREATEST(total_kobo - paid_kobo, 0))::bigint AS owed
FROM transactions
WHERE user_id = $1 AND type = $2
GROUP BY party_name
HAVING SUM(GREATEST(total_kobo - paid_kobo, 0)) > 0
ORDER BY owed DESC, party_name ASC`, userID, string(typ))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ledger.PartyBalance{}
	for rows.Next() {
		var (
			party string
			owed  int64
		)
		if err := rows.Scan(&party, &owed); err != nil {
			return nil, err
		}
		out = append(out, ledger.PartyBalance{Party: party, Type: typ, Balance: money.FromKobo(owed)})
	}
	return out, rows.Err()
}

func (r *Repo) query(ctx context.Context, sql string, args ...any) ([]ledger.Transaction, error) {
	rows, err := r.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ledger.Transaction{}
	for rows.Next() {
		var t row
		if err := rows.Scan(&t.ID, &t.Type, &t.Party, &t.Item, &t.Quantity, &t.TotalKobo, &t.BalanceKobo, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t.toLedger())
	}
	return out, rows.Err()
}
