package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Actions written by the API.
const (
	ActionLogin             = "auth.login"
	ActionVerify            = "auth.verify"
	ActionTransactionCreate = "transaction.create"
	ActionDebtPayment       = "debt.payment"
)

type Entry struct {
	UserID     *uuid.UUID
	Action     string
	EntityType string
	EntityID   *string
	IP         *string
	UserAgent  *string
	Metadata   map[string]any
}

// Execer is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx, so an entry
// can be written inside the caller's transaction.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Write records an audit entry; failures are returned so callers can ignore if needed.
func Write(ctx context.Context, db Execer, e Entry) error {
	if db == nil {
		return nil
	}

	var metadata any
	if len(e.Metadata) > 0 {
		raw, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshal audit metadata: %w", err)
		}
		metadata = json.RawMessage(raw)
	}

	_, err := db.Exec(ctx, `
INSERT INTO audit_logs (user_id, action, entity_type, entity_id, ip, user_agent, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, e.UserID, e.Action, e.EntityType, e.EntityID, e.IP, e.UserAgent, metadata)

	return err
}

// Recorder writes entries outside any caller transaction.
type Recorder struct {
	DB Execer
}

func (r Recorder) Record(ctx context.Context, e Entry) error {
	return Write(ctx, r.DB, e)
}

func Ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
