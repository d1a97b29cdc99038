package otp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type recordingSender struct {
	phone, message string
	err            error
}

func (r *recordingSender) Send(_ context.Context, phone, message string) error {
	r.phone, r.message = phone, message
	return r.err
}

func newService(devCode string) (*Service, *MemoryStore, *recordingSender, *time.Time) {
	store := NewMemoryStore()
	sender := &recordingSender{}
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s := NewService(store, sender, 5*time.Minute, 5, devCode, zerolog.Nop())
	s.now = func() time.Time { return now }
	return s, store, sender, &now
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "08000000000", want: "08000000000"},
		{in: " +234 800-000-0000 ", want: "+2348000000000"},
		{in: "080000000", wantErr: true},
		{in: "0800abc0000", wantErr: true},
		{in: "080+0000000", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizePhone(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPhone) {
					t.Fatalf("err = %v, want ErrInvalidPhone", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("NormalizePhone(%q) = %q, %v", tt.in, got, err)
			}
		})
	}
}

func TestIssueAndVerifyDevCode(t *testing.T) {
	s, store, sender, _ := newService("000000")
	ctx := context.Background()

	if err := s.Issue(ctx, "08000000000"); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if sender.phone != "08000000000" || !strings.Contains(sender.message, "000000") {
		t.Fatalf("sent %q to %q", sender.message, sender.phone)
	}
	rec, _ := store.Get(ctx, "08000000000")
	if rec.CodeHash == "000000" || rec.CodeHash == "" {
		t.Fatal("code must be stored hashed")
	}

	if err := s.Verify(ctx, "08000000000", "000000"); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if err := s.Verify(ctx, "08000000000", "000000"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("second Verify = %v, code should be consumed", err)
	}
}

func TestRandomCodeIsSixDigits(t *testing.T) {
	s, _, sender, _ := newService("")
	if err := s.Issue(context.Background(), "08000000000"); err != nil {
		t.Fatal(err)
	}
	fields := strings.Fields(sender.message)
	code := strings.TrimSuffix(fields[5], ".")
	if len(code) != CodeLen {
		t.Fatalf("code %q from message %q", code, sender.message)
	}
	if err := s.Verify(context.Background(), "08000000000", code); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	s, store, _, now := newService("123456")
	ctx := context.Background()
	_ = s.Issue(ctx, "08000000000")

	*now = now.Add(5 * time.Minute)
	if err := s.Verify(ctx, "08000000000", "123456"); !errors.Is(err, ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired", err)
	}
	if _, err := store.Get(ctx, "08000000000"); !errors.Is(err, ErrNotFound) {
		t.Fatal("expired code should be removed")
	}
}

func TestVerifyAttemptCap(t *testing.T) {
	s, _, _, _ := newService("123456")
	ctx := context.Background()
	_ = s.Issue(ctx, "08000000000")

	for i := 0; i < 5; i++ {
		if err := s.Verify(ctx, "08000000000", "999999"); !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("attempt %d: err = %v", i+1, err)
		}
	}
	if err := s.Verify(ctx, "08000000000", "123456"); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("err = %v, want ErrTooManyAttempts", err)
	}
}

type countingStore struct {
	*MemoryStore
	granted atomic.Int32
}

func (c *countingStore) ClaimAttempt(ctx context.Context, phone string, max int) (bool, error) {
	ok, err := c.MemoryStore.ClaimAttempt(ctx, phone, max)
	if ok {
		c.granted.Add(1)
	}
	return ok, err
}

func TestConcurrentGuessesStayUnderCap(t *testing.T) {
	store := &countingStore{MemoryStore: NewMemoryStore()}
	s := NewService(store, &recordingSender{}, 5*time.Minute, 5, "123456", zerolog.Nop())
	ctx := context.Background()
	if err := s.Issue(ctx, "08000000000"); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Verify(ctx, "08000000000", "999999")
		}()
	}
	wg.Wait()

	if n := store.granted.Load(); n != 5 {
		t.Fatalf("compared %d guesses, want 5", n)
	}
}

func TestMemoryClaimAttempt(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	if ok, _ := m.ClaimAttempt(ctx, "08000000000", 2); ok {
		t.Fatal("claim without a record")
	}
	_ = m.Save(ctx, Record{Phone: "08000000000"})
	for i, want := range []bool{true, true, false} {
		if ok, err := m.ClaimAttempt(ctx, "08000000000", 2); ok != want || err != nil {
			t.Fatalf("claim %d = %v, %v", i+1, ok, err)
		}
	}
}

func TestReissueResetsAttempts(t *testing.T) {
	s, store, _, _ := newService("123456")
	ctx := context.Background()
	_ = s.Issue(ctx, "08000000000")
	_ = s.Verify(ctx, "08000000000", "111111")
	_ = s.Issue(ctx, "08000000000")

	rec, _ := store.Get(ctx, "08000000000")
	if rec.Attempts != 0 {
		t.Fatalf("attempts = %d after reissue", rec.Attempts)
	}
}

func TestIssueSendFailure(t *testing.T) {
	s, _, sender, _ := newService("123456")
	sender.err = errors.New("provider down")
	if err := s.Issue(context.Background(), "08000000000"); err == nil {
		t.Fatal("expected send error")
	}
}

func TestArkeselSender(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = map[string]string{}
		for k := range r.URL.Query() {
			got[k] = r.URL.Query().Get(k)
		}
		if got["to"] == "bad" {
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	a := NewArkeselSender("key", "ArkeTest")
	a.Endpoint = srv.URL
	if err := a.Send(context.Background(), "+2348000000000", "hi"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	want := map[string]string{
		"action": "send-sms", "api_key": "key", "from": "ArkeTest",
		"to": "2348000000000", "sms": "hi", "use_case": "transactional",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}

	if err := a.Send(context.Background(), "bad", "hi"); err == nil {
		t.Fatal("expected error on 400")
	}
}
