package authflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/lgndcraft2/ledger/internal/session"
)

const (
	MinPhoneLen = 10
	CodeLen     = 6
)

// Messages shown to the user when an attempt fails.
const (
	LoginFailedMessage = "Login failed. Ensure backend is running."
	InvalidCodeMessage = "Invalid code. Try again."
)

var (
	ErrNotReady    = errors.New("input incomplete")
	ErrLoginFailed = errors.New("login failed")
	ErrInvalidCode = errors.New("invalid code")
)

type Step int

const (
	PhoneEntry Step = iota
	CodeEntry
	Authenticated
)

func (s Step) String() string {
	switch s {
	case PhoneEntry:
		return "phone_entry"
	case CodeEntry:
		return "code_entry"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// API is the part of the remote API the login flow needs.
type API interface {
	Login(ctx context.Context, phone string) error
	Verify(ctx context.Context, phone, code string) (string, error)
}

// Flow is the two-step phone + one-time-code login. Each action is a single
// attempt; a failure leaves the flow where it was.
type Flow struct {
	api  API
	sess *session.Session
	log  zerolog.Logger

	mu      sync.Mutex
	step    Step
	phone   string
	code    string
	loading bool
}

func New(api API, sess *session.Session, log zerolog.Logger) *Flow {
	f := &Flow{api: api, sess: sess, log: log}
	if sess.Authenticated() {
		f.step = Authenticated
	}
	return f
}

func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

func (f *Flow) Phone() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phone
}

func (f *Flow) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading
}

func (f *Flow) SetPhone(phone string) {
	f.mu.Lock()
	f.phone = phone
	f.mu.Unlock()
}

// SetCode keeps at most CodeLen characters.
func (f *Flow) SetCode(code string) {
	if utf8.RuneCountInString(code) > CodeLen {
		code = string([]rune(code)[:CodeLen])
	}
	f.mu.Lock()
	f.code = code
	f.mu.Unlock()
}

// CanRequestCode reports whether the continue action is enabled.
func (f *Flow) CanRequestCode() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step == PhoneEntry && !f.loading && utf8.RuneCountInString(f.phone) >= MinPhoneLen
}

// CanVerify reports whether the verify action is enabled.
func (f *Flow) CanVerify() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step == CodeEntry && !f.loading && utf8.RuneCountInString(f.code) == CodeLen
}

// RequestCode sends the phone number to the login endpoint and moves to
// CodeEntry on success.
func (f *Flow) RequestCode(ctx context.Context) error {
	if !f.CanRequestCode() {
		return ErrNotReady
	}
	f.mu.Lock()
	f.loading = true
	phone := f.phone
	f.mu.Unlock()

	err := f.api.Login(ctx, phone)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading = false
	if err != nil {
		f.log.Warn().Err(err).Msg("request code failed")
		return fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}
	f.step = CodeEntry
	return nil
}

// Verify exchanges the code for a token and begins the session.
func (f *Flow) Verify(ctx context.Context) error {
	if !f.CanVerify() {
		return ErrNotReady
	}
	f.mu.Lock()
	f.loading = true
	phone, code := f.phone, f.code
	f.mu.Unlock()

	token, err := f.api.Verify(ctx, phone, code)
	if err == nil {
		err = f.sess.Begin(ctx, token)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading = false
	if err != nil {
		f.log.Warn().Err(err).Msg("verify failed")
		return fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}
	f.step = Authenticated
	return nil
}

// ResumeCodeEntry moves straight to code entry for a phone whose code was
// requested earlier, e.g. by a previous CLI invocation.
func (f *Flow) ResumeCodeEntry(phone string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != PhoneEntry || f.loading || utf8.RuneCountInString(phone) < MinPhoneLen {
		return ErrNotReady
	}
	f.phone = phone
	f.step = CodeEntry
	return nil
}

// Back returns to phone entry; the phone number is kept.
func (f *Flow) Back() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step == CodeEntry && !f.loading {
		f.step = PhoneEntry
	}
}

// Logout ends the session and starts over at phone entry.
func (f *Flow) Logout(ctx context.Context) error {
	err := f.sess.End(ctx)
	f.mu.Lock()
	f.step = PhoneEntry
	f.code = ""
	f.mu.Unlock()
	return err
}

// Message maps a flow error to the notice shown to the user.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrLoginFailed):
		return LoginFailedMessage
	case errors.Is(err, ErrInvalidCode):
		return InvalidCodeMessage
	case errors.Is(err, ErrNotReady):
		return "Please complete the form."
	case err == nil:
		return ""
	default:
		return err.Error()
	}
}
