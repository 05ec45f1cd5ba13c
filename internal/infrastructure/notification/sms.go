package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SMSSender delivers one text message
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// SMSConfig holds SMS provider settings
type SMSConfig struct {
	BaseURL  string
	APIKey   string
	SenderID string
	Timeout  time.Duration
}

// HTTPSMSSender posts messages to a form-encoded SMS provider API
type HTTPSMSSender struct {
	cfg    SMSConfig
	client *http.Client
}

// NewHTTPSMSSender creates a new SMS sender
func NewHTTPSMSSender(cfg SMSConfig) *HTTPSMSSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTPSMSSender{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type smsResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// SendSMS implements SMSSender
func (s *HTTPSMSSender) SendSMS(ctx context.Context, to, body string) error {
	form := url.Values{}
	form.Set("to", normalizePhone(to))
	form.Set("from", s.cfg.SenderID)
	form.Set("sms", body)
	form.Set("type", "plain")
	form.Set("channel", "generic")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(s.cfg.BaseURL, "/")+"/sms/send", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sms api error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var parsed smsResponse
	if err := json.Unmarshal(raw, &parsed); err == nil && strings.EqualFold(parsed.Status, "error") {
		return fmt.Errorf("sms api error: %s", parsed.Message)
	}
	return nil
}

// normalizePhone converts local Nigerian numbers (080...) to international format
func normalizePhone(phone string) string {
	p := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(phone))
	switch {
	case strings.HasPrefix(p, "+"):
		return p[1:]
	case strings.HasPrefix(p, "0") && len(p) == 11:
		return "234" + p[1:]
	}
	return p
}
