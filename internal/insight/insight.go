package insight

import (
	"context"
	"fmt"
	"time"

	"github.com/lgndcraft2/ledger/internal/ledger"
	"github.com/lgndcraft2/ledger/internal/money"
)

// DefaultDelay is how long the offline summarizer pretends to think.
const DefaultDelay = 2500 * time.Millisecond

// Summarizer turns dashboard stats into a short business insight.
type Summarizer interface {
	GenerateSummary(ctx context.Context, stats ledger.DashboardStats) (string, error)
}

// Compose renders the insight text for stats. It only states figures the
// ledger actually knows.
func Compose(stats ledger.DashboardStats) string {
	return fmt.Sprintf(
		"Total revenue is %s. Recommendation: Collect the %s owed by debtors to boost cash flow.",
		money.Format(stats.TotalSales), money.Format(stats.ActiveDebts),
	)
}

// SummaryAPI is the remote call behind Remote.
type SummaryAPI interface {
	Summary(ctx context.Context) (string, error)
}

// Remote asks the API for the summary. The server composes it from its own
// stats, so the stats argument is ignored.
type Remote struct {
	API SummaryAPI
}

func (r Remote) GenerateSummary(ctx context.Context, _ ledger.DashboardStats) (string, error) {
	s, err := r.API.Summary(ctx)
	if err != nil {
		return "", fmt.Errorf("remote summary: %w", err)
	}
	return s, nil
}

// Template works offline: it waits Delay and then returns Compose(stats).
type Template struct {
	Delay time.Duration
}

func (t Template) GenerateSummary(ctx context.Context, stats ledger.DashboardStats) (string, error) {
	if t.Delay > 0 {
		timer := time.NewTimer(t.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	return Compose(stats), nil
}
