// Package gateway wraps the Razorpay-compatible payment API: opening payment
// intents and validating the HMAC signatures the gateway attaches to client
// confirmations and webhooks.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// SignatureHeader carries the webhook signature on gateway callbacks.
const SignatureHeader = "X-Razorpay-Signature"

const defaultBaseURL = "https://api.razorpay.com"

// Config holds gateway credentials and connection settings.
// KeySecret signs client payment confirmations; WebhookSecret is a distinct
// secret signing webhook bodies.
type Config struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	BaseURL       string
	Timeout       time.Duration
}

// Client is an explicitly constructed gateway client, injected wherever
// payment intents are opened. No package-level instance.
type Client struct {
	cfg  Config
	http *resty.Client
}

// NewClient returns a Client with a bounded request timeout.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetBasicAuth(cfg.KeyID, cfg.KeySecret)
	return &Client{cfg: cfg, http: httpClient}
}

type createIntentRequest struct {
	Amount   int64  `json:"amount"` // minor currency units
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type createIntentResponse struct {
	ID string `json:"id"`
}

// CreateIntent opens a payment intent for amountMinorUnits and returns the
// gateway's order identifier. The receipt should be unique per attempt to
// reduce duplicate-charge ambiguity on client retries.
func (c *Client) CreateIntent(ctx context.Context, amountMinorUnits int64, currency, receipt string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetBody(createIntentRequest{
			Amount:   amountMinorUnits,
			Currency: currency,
			Receipt:  receipt,
		}).
		Post("/v1/orders")
	if err != nil {
		return "", fmt.Errorf("gateway create intent: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("gateway create intent failed with status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	var out createIntentResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("parse create intent response: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("gateway response missing order id: %s", string(resp.Body()))
	}
	return out.ID, nil
}
