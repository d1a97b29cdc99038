package otp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// LogSender writes the message to the log instead of delivering it.
type LogSender struct {
	Log zerolog.Logger
}

func (s LogSender) Send(_ context.Context, phone, message string) error {
	s.Log.Warn().Str("phone", phone).Str("message", message).Msg("otp not delivered (log sender)")
	return nil
}

const arkeselEndpoint = "https://sms.arkesel.com/sms/api"

// ArkeselSender delivers codes by SMS through Arkesel.
type ArkeselSender struct {
	APIKey   string
	SenderID string
	Endpoint string
	HTTP     *http.Client
}

func NewArkeselSender(apiKey, senderID string) *ArkeselSender {
	return &ArkeselSender{APIKey: apiKey, SenderID: senderID, Endpoint: arkeselEndpoint, HTTP: http.DefaultClient}
}

func (a *ArkeselSender) Send(ctx context.Context, phone, message string) error {
	q := url.Values{}
	q.Set("action", "send-sms")
	q.Set("api_key", a.APIKey)
	q.Set("from", a.SenderID)
	q.Set("to", strings.TrimPrefix(phone, "+"))
	q.Set("sms", message)
	q.Set("use_case", "transactional")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	res, err := a.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return &arkeselHTTPError{Status: res.StatusCode, Body: string(body)}
	}
	return nil
}

type arkeselHTTPError struct {
	Status int
	Body   string
}

func (e *arkeselHTTPError) Error() string {
	return fmt.Sprintf("arkesel send failed: status %d", e.Status)
}
