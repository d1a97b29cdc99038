package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// TokenKey is the storage key the auth token is persisted under.
const TokenKey = "auth_token"

var ErrEmptyToken = errors.New("session: empty token")

// Store persists small string values by key.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Session holds the current auth token. It is created by the root of the
// client and handed to everything that talks to the API; there is no global.
type Session struct {
	mu    sync.RWMutex
	token string
	store Store
}

func New(store Store) *Session {
	return &Session{store: store}
}

// Restore loads a previously persisted token, if any.
func Restore(ctx context.Context, store Store) (*Session, error) {
	s := New(store)
	tok, ok, err := store.Get(ctx, TokenKey)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	if ok {
		s.token = tok
	}
	return s, nil
}

// Begin starts an authenticated session with a freshly verified token.
func (s *Session) Begin(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}
	if err := s.store.Set(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

// End destroys the session (logout). The in-memory token is cleared even if
// the store fails.
func (s *Session) End(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	if err := s.store.Delete(ctx, TokenKey); err != nil {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// MemoryStore is a Store that lives for the process only.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]string{}}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
