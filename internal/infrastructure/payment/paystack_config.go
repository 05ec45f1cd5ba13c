package payment

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

const (
	paystackDefaultBaseURL = "https://api.paystack.co"
	paystackDefaultTimeout = 30 * time.Second
)

// PaystackConfig contains configuration for the Paystack REST API
type PaystackConfig struct {
	// BaseURL is the API root, overridable for tests
	BaseURL string
	// SecretKey authenticates API calls and signs webhooks
	SecretKey string
	// CallbackURL is where Paystack redirects the payer after checkout
	CallbackURL string
	// PreferredBank is the bank slug used for dedicated virtual accounts
	PreferredBank string
	// Timeout bounds a single HTTP round trip
	Timeout time.Duration
}

// Errors for configuration validation
var (
	ErrPaystackMissingSecretKey   = errors.New("paystack: missing secret key")
	ErrPaystackInvalidSecretKey   = errors.New("paystack: secret key must start with sk_")
	ErrPaystackInvalidBaseURL     = errors.New("paystack: invalid base URL")
	ErrPaystackInvalidCallbackURL = errors.New("paystack: invalid callback URL")
)

// Validate validates the configuration
func (c *PaystackConfig) Validate() error {
	if c.SecretKey == "" {
		return ErrPaystackMissingSecretKey
	}
	if !strings.HasPrefix(c.SecretKey, "sk_") {
		return ErrPaystackInvalidSecretKey
	}
	if c.BaseURL != "" {
		if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			return ErrPaystackInvalidBaseURL
		}
	}
	if c.CallbackURL != "" {
		if u, err := url.Parse(c.CallbackURL); err != nil || u.Scheme == "" || u.Host == "" {
			return ErrPaystackInvalidCallbackURL
		}
	}
	return nil
}

// IsLive reports whether the key is a live-mode key
func (c *PaystackConfig) IsLive() bool {
	return strings.HasPrefix(c.SecretKey, "sk_live_")
}

func (c *PaystackConfig) baseURL() string {
	if c.BaseURL == "" {
		return paystackDefaultBaseURL
	}
	return strings.TrimRight(c.BaseURL, "/")
}

func (c *PaystackConfig) timeout() time.Duration {
	if c.Timeout <= 0 {
		return paystackDefaultTimeout
	}
	return c.Timeout
}
