package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lgndcraft2/ledger/internal/ledger"
	"github.com/lgndcraft2/ledger/internal/money"
)

var (
	ErrUnauthenticated = errors.New("no session token")
	ErrBadResponse     = errors.New("unexpected response from API")
)

// TokenSource supplies the bearer token for authenticated calls.
type TokenSource interface {
	Token() string
}

// HTTPError is a non-2xx answer from the API.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d", e.Status)
}

// Client talks to the ledger HTTP API. Every response is decoded into an
// explicit shape and checked before it is handed back.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Tokens  TokenSource
}

// New builds a client. A zero timeout means calls wait for the transport.
func New(baseURL string, tokens TokenSource, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
		Tokens:  tokens,
	}
}

type loginRequest struct {
	Phone string `json:"phone"`
}

type verifyRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

type verifyResponse struct {
	Token string `json:"token"`
}

type snapshotResponse struct {
	Stats        *ledger.DashboardStats `json:"stats"`
	Transactions []ledger.Transaction   `json:"transactions"`
}

type summaryResponse struct {
	Summary *string `json:"summary"`
}

// DebtsResponse lists who owes the trader and whom the trader owes.
type DebtsResponse struct {
	Customers []ledger.PartyBalance `json:"customers"`
	Suppliers []ledger.PartyBalance `json:"suppliers"`
}

// Login asks the API to send a one-time code to phone.
func (c *Client) Login(ctx context.Context, phone string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/login", loginRequest{Phone: phone}, false, nil)
}

// Verify exchanges phone and code for a session token.
func (c *Client) Verify(ctx context.Context, phone, code string) (string, error) {
	var out verifyResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/verify", verifyRequest{Phone: phone, Code: code}, false, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Token) == "" {
		return "", fmt.Errorf("%w: verify returned no token", ErrBadResponse)
	}
	return out.Token, nil
}

// Dashboard fetches the combined stats + transactions snapshot.
func (c *Client) Dashboard(ctx context.Context) (ledger.Snapshot, error) {
	var out snapshotResponse
	if err := c.do(ctx, http.MethodGet, "/api/dashboard", nil, true, &out); err != nil {
		return ledger.Snapshot{}, err
	}
	if out.Stats == nil {
		return ledger.Snapshot{}, fmt.Errorf("%w: dashboard missing stats", ErrBadResponse)
	}
	snap := ledger.Snapshot{Stats: *out.Stats, Transactions: out.Transactions}
	if snap.Transactions == nil {
		snap.Transactions = []ledger.Transaction{}
	}
	if err := snap.Validate(); err != nil {
		return ledger.Snapshot{}, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return snap, nil
}

// AddTransaction records a transaction. The response body is not used.
func (c *Client) AddTransaction(ctx context.Context, req ledger.NewTransactionRequest) error {
	return c.do(ctx, http.MethodPost, "/api/transaction/add", req, true, nil)
}

// Summary fetches the insight text for the current stats.
func (c *Client) Summary(ctx context.Context) (string, error) {
	var out summaryResponse
	if err := c.do(ctx, http.MethodGet, "/api/summary", nil, true, &out); err != nil {
		return "", err
	}
	if out.Summary == nil {
		return "", fmt.Errorf("%w: summary missing", ErrBadResponse)
	}
	return *out.Summary, nil
}

func (c *Client) Debts(ctx context.Context) (DebtsResponse, error) {
	var out DebtsResponse
	if err := c.do(ctx, http.MethodGet, "/api/debts", nil, true, &out); err != nil {
		return DebtsResponse{}, err
	}
	for _, p := range append(append([]ledger.PartyBalance{}, out.Customers...), out.Suppliers...) {
		if !p.Balance.IsPositive() {
			return DebtsResponse{}, fmt.Errorf("%w: non-positive party balance for %q", ErrBadResponse, p.Party)
		}
	}
	return out, nil
}

type payResponse struct {
	ID        int64         `json:"id"`
	Remaining *money.Amount `json:"remaining"`
}

// PayDebt records a payment against a party's open balance and returns what
// the party still owes.
func (c *Client) PayDebt(ctx context.Context, req ledger.PaymentRequest) (ledger.Payment, error) {
	var out payResponse
	if err := c.do(ctx, http.MethodPost, "/api/debts/pay", req, true, &out); err != nil {
		return ledger.Payment{}, err
	}
	if out.Remaining == nil || out.Remaining.IsNegative() {
		return ledger.Payment{}, fmt.Errorf("%w: payment missing remaining balance", ErrBadResponse)
	}
	return ledger.Payment{ID: out.ID, Party: req.Party, Type: req.Type, Amount: req.Amount, Remaining: *out.Remaining}, nil
}

// Statement downloads the PDF statement for [from, to] (YYYY-MM-DD, either may be empty).
func (c *Client) Statement(ctx context.Context, from, to string) ([]byte, error) {
	path := "/api/statement"
	if from != "" && to != "" {
		path += "?" + url.Values{"from": {from}, "to": {to}}.Encode()
	}
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, true)
	if err != nil {
		return nil, err
	}
	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= 300 {
		return nil, httpError(res.StatusCode, body)
	}
	if !bytes.HasPrefix(body, []byte("%PDF")) {
		return nil, fmt.Errorf("%w: statement is not a PDF", ErrBadResponse)
	}
	return body, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any, auth bool) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	if auth {
		tok := ""
		if c.Tokens != nil {
			tok = c.Tokens.Token()
		}
		if tok == "" {
			return nil, ErrUnauthenticated
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, auth bool, out any) error {
	req, err := c.newRequest(ctx, method, path, body, auth)
	if err != nil {
		return err
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode >= 300 {
		return httpError(res.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return nil
}

func httpError(status int, body []byte) error {
	var e struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &e)
	return &HTTPError{Status: status, Message: e.Error}
}
