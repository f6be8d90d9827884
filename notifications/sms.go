package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var _ Notifier = (*SMSNotifier)(nil)

const twilioBaseURL = "https://api.twilio.com/2010-04-01"

// smsMaxLen keeps a message within a single concatenated SMS.
const smsMaxLen = 320

type SMSConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	To         []string
}

// SMSNotifier sends text messages through the Twilio Messages API.
type SMSNotifier struct {
	cfg     SMSConfig
	client  *http.Client
	baseURL string
}

func NewSMSNotifier(cfg SMSConfig) *SMSNotifier {
	return &SMSNotifier{
		cfg:     cfg,
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: twilioBaseURL,
	}
}

func (s *SMSNotifier) Name() string { return "sms" }

func (s *SMSNotifier) Send(ctx context.Context, msg Message) error {
	body := msg.Title()
	if len(body) > smsMaxLen {
		body = body[:smsMaxLen]
	}
	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", s.baseURL, url.PathEscape(s.cfg.AccountSID))

	for _, to := range s.cfg.To {
		form := url.Values{}
		form.Set("To", to)
		form.Set("From", s.cfg.From)
		form.Set("Body", body)

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return fmt.Errorf("create sms request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.SetBasicAuth(s.cfg.AccountSID, s.cfg.AuthToken)

		resp, err := s.client.Do(req)
		if err != nil {
			return fmt.Errorf("sms to %s: %w", to, err)
		}
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("sms to %s: status %d", to, resp.StatusCode)
		}
	}
	return nil
}
