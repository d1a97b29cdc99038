package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lgndcraft2/ledger/internal/insight"
	"github.com/lgndcraft2/ledger/internal/ledger"
	"github.com/lgndcraft2/ledger/internal/money"
)

// HomePreview is how many transactions the home tab shows.
const HomePreview = 3

const SaveFailedMessage = "Error saving transaction"

var ErrSaveFailed = errors.New("save transaction failed")

// API is the part of the remote API the dashboard needs.
type API interface {
	Dashboard(ctx context.Context) (ledger.Snapshot, error)
	AddTransaction(ctx context.Context, req ledger.NewTransactionRequest) error
}

// Model holds what the trader sees after signing in: the latest snapshot,
// the selected tab and filter, and the actions that change them.
//
// Every load is numbered. A response is applied only if no newer load has
// already been applied, so a slow early fetch cannot overwrite fresher data.
type Model struct {
	api        API
	summarizer insight.Summarizer
	log        zerolog.Logger

	life   context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	snap    ledger.Snapshot
	loaded  bool
	lastErr error
	issued  uint64
	applied uint64
	tab     ledger.Tab
	filter  ledger.FilterType
}

func New(api API, summarizer insight.Summarizer, log zerolog.Logger) *Model {
	life, cancel := context.WithCancel(context.Background())
	return &Model{
		api:        api,
		summarizer: summarizer,
		log:        log,
		life:       life,
		cancel:     cancel,
		snap:       ledger.EmptySnapshot(),
		tab:        ledger.TabHome,
		filter:     ledger.FilterAll,
	}
}

// Close cancels every call still in flight. The model keeps its last state.
func (m *Model) Close() {
	m.cancel()
}

// bind ties ctx to the model's lifetime.
func (m *Model) bind(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(m.life, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// Load fetches a fresh snapshot. Failures are logged and leave the previous
// state in place; Err reports the last one.
func (m *Model) Load(ctx context.Context) {
	m.mu.Lock()
	m.issued++
	gen := m.issued
	m.mu.Unlock()

	ctx, done := m.bind(ctx)
	defer done()

	snap, err := m.api.Dashboard(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = true
	if err != nil {
		m.log.Error().Err(err).Uint64("generation", gen).Msg("dashboard load failed")
		if gen > m.applied {
			m.lastErr = err
		}
		return
	}
	if gen <= m.applied {
		m.log.Debug().Uint64("generation", gen).Uint64("applied", m.applied).Msg("discarding stale dashboard")
		return
	}
	m.applied = gen
	m.snap = snap
	m.lastErr = nil
}

// Loading is true until the first load has finished, successfully or not.
func (m *Model) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.loaded
}

func (m *Model) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Model) Snapshot() ledger.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

func (m *Model) Stats() ledger.DashboardStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.Stats
}

func (m *Model) Tab() ledger.Tab {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tab
}

func (m *Model) SetTab(tab ledger.Tab) {
	m.mu.Lock()
	m.tab = tab
	m.mu.Unlock()
}

func (m *Model) Filter() ledger.FilterType {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter
}

func (m *Model) SetFilter(ft ledger.FilterType) {
	m.mu.Lock()
	m.filter = ft
	m.mu.Unlock()
}

// Visible is the transaction list for the current tab and filter.
func (m *Model) Visible() []ledger.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ledger.Filter(m.snap.Transactions, m.tab, m.filter)
}

// Recent returns the first n visible transactions.
func (m *Model) Recent(n int) []ledger.Transaction {
	v := m.Visible()
	if n >= 0 && n < len(v) {
		v = v[:n]
	}
	return v
}

// Submit records the transaction described by f and reloads the snapshot.
// On failure nothing changes and ErrSaveFailed is returned.
func (m *Model) Submit(ctx context.Context, f Form) error {
	req, err := f.Request()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}

	callCtx, done := m.bind(ctx)
	err = m.api.AddTransaction(callCtx, req)
	done()
	if err != nil {
		m.log.Error().Err(err).Str("type", string(req.Type)).Msg("add transaction failed")
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	m.Load(ctx)
	return nil
}

// Insight asks the summarizer about the current stats.
func (m *Model) Insight(ctx context.Context) (string, error) {
	ctx, done := m.bind(ctx)
	defer done()
	return m.summarizer.GenerateSummary(ctx, m.Stats())
}

// Form is the raw input of the add-transaction form.
type Form struct {
	Type     ledger.TransactionType
	Party    string
	Item     string
	Quantity string
	Total    string
	Paid     string
}

func NewForm() Form {
	return Form{Type: ledger.Sale, Quantity: "1"}
}

// Request converts the form into the request body. A blank Paid means the
// total was paid in full, a blank Quantity means one and a blank Total is
// zero. Nothing else is checked here; the server rejects what it won't store.
func (f Form) Request() (ledger.NewTransactionRequest, error) {
	qty := 1
	if q := strings.TrimSpace(f.Quantity); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			return ledger.NewTransactionRequest{}, fmt.Errorf("%w: quantity %q is not a number", ledger.ErrInvalidTransaction, f.Quantity)
		}
		qty = n
	}

	total, err := money.FromInput(f.Total)
	if err != nil {
		return ledger.NewTransactionRequest{}, fmt.Errorf("total: %w", err)
	}
	paid, err := ledger.ResolveAmountPaid(total, f.Paid)
	if err != nil {
		return ledger.NewTransactionRequest{}, fmt.Errorf("paid: %w", err)
	}

	return ledger.NewTransactionRequest{
		Type:        ledger.TransactionType(strings.ToUpper(strings.TrimSpace(string(f.Type)))),
		PartyName:   strings.TrimSpace(f.Party),
		ItemName:    strings.TrimSpace(f.Item),
		Quantity:    qty,
		TotalAmount: total,
		AmountPaid:  paid,
	}, nil
}
