package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const twilioBaseURL = "https://api.twilio.com/2010-04-01"

// TwilioConfig holds the Twilio account credentials and sender number.
type TwilioConfig struct {
	AccountSID string        `env:"ACCOUNT_SID"`
	AuthToken  string        `env:"AUTH_TOKEN"`
	From       string        `env:"PHONE_NUMBER"`
	BaseURL    string        `env:"BASE_URL"`
	Timeout    time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

// Configured reports whether credentials and a sender are present.
func (c TwilioConfig) Configured() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.From != ""
}

// TwilioSender sends SMS through the Twilio Messages API.
type TwilioSender struct {
	cfg    TwilioConfig
	client *http.Client
}

// NewTwilioSender validates cfg. A nil client gets a default with cfg.Timeout.
func NewTwilioSender(cfg TwilioConfig, client *http.Client) (*TwilioSender, error) {
	if !cfg.Configured() {
		return nil, errors.New("notify: twilio account sid, auth token and sender number are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = twilioBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &TwilioSender{cfg: cfg, client: client}, nil
}

type twilioMessage struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// SendSMS posts one message and returns the Twilio message SID.
func (s *TwilioSender) SendSMS(ctx context.Context, to, body string) (string, error) {
	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", s.cfg.BaseURL, url.PathEscape(s.cfg.AccountSID))
	form := url.Values{
		"To":   {to},
		"From": {s.cfg.From},
		"Body": {body},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build twilio request: %w", err)
	}
	req.SetBasicAuth(s.cfg.AccountSID, s.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("twilio request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("read twilio response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr twilioError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Code != 0 {
			return "", fmt.Errorf("twilio rejected message: status %d code %d: %s", resp.StatusCode, apiErr.Code, apiErr.Message)
		}
		return "", fmt.Errorf("twilio rejected message: status %d", resp.StatusCode)
	}

	var msg twilioMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return "", fmt.Errorf("decode twilio response: %w", err)
	}
	if msg.SID == "" {
		return "", errors.New("twilio response carried no message sid")
	}
	return msg.SID, nil
}
