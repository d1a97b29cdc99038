package whatsapp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const twilioAPI = "https://api.twilio.com/2010-04-01"

// TwilioClient sends WhatsApp text messages through Twilio's Messages API.
type TwilioClient struct {
	AccountSID string
	AuthToken  string
	FromWA     string // "whatsapp:+1415..."
	BaseURL    string
	HTTP       *http.Client
}

func NewTwilio(accountSID, authToken, from string) *TwilioClient {
	return &TwilioClient{
		AccountSID: accountSID,
		AuthToken:  authToken,
		FromWA:     from,
		BaseURL:    twilioAPI,
		HTTP:       http.DefaultClient,
	}
}

// Send delivers message to phone. It satisfies the OTP and receipt senders.
func (t *TwilioClient) Send(ctx context.Context, phone, message string) error {
	to := strings.TrimSpace(phone)
	if !strings.HasPrefix(to, "whatsapp:") {
		to = "whatsapp:" + to
	}

	form := url.Values{}
	form.Set("From", t.FromWA)
	form.Set("To", to)
	form.Set("Body", message)

	endpoint := t.BaseURL + "/Accounts/" + url.PathEscape(t.AccountSID) + "/Messages.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(t.AccountSID, t.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := t.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return &twilioHTTPError{Status: res.StatusCode, Body: string(body)}
	}
	_, _ = io.Copy(io.Discard, res.Body)
	return nil
}

type twilioHTTPError struct {
	Status int
	Body   string
}

func (e *twilioHTTPError) Error() string {
	return fmt.Sprintf("twilio send failed: status %d", e.Status)
}
