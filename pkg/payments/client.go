package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/config"
	pkgerrors "github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/errors"
)

const (
	checkoutSessionsPath       = "v1/checkout/sessions"
	responseBodyReadLimit int64 = 1024
)

var errAPIKeyRequired = errors.New("payments api key is required")

// Client wraps the hosted checkout gateway used for store credit top-ups.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	successURL string
	cancelURL  string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured gateway base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the gateway client from the payments configuration.
func NewClient(cfg config.PaymentsConfig, opts ...Option) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSpace(cfg.BaseURL),
		apiKey:     apiKey,
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.baseURL == "" {
		return nil, errors.New("payments base URL is required")
	}

	return client, nil
}

// CheckoutRequest describes a hosted checkout session to create.
type CheckoutRequest struct {
	AmountCents int64
	Currency    string
	Reference   string
	Description string
}

// CheckoutSession is the gateway's handle on a created session.
type CheckoutSession struct {
	ID          string
	RedirectURL string
}

// CreateCheckout opens a hosted checkout session and returns the redirect URL.
// The reference travels as gateway metadata and comes back on the webhook.
func (c *Client) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payments client not configured")
	}
	if req.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout amount must be positive")
	}
	if strings.TrimSpace(req.Reference) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout reference is required")
	}

	payload, err := json.Marshal(struct {
		AmountCents int64  `json:"amount_cents"`
		Currency    string `json:"currency"`
		Reference   string `json:"reference"`
		Description string `json:"description,omitempty"`
		SuccessURL  string `json:"success_url,omitempty"`
		CancelURL   string `json:"cancel_url,omitempty"`
	}{
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		Reference:   req.Reference,
		Description: req.Description,
		SuccessURL:  c.successURL,
		CancelURL:   c.cancelURL,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal checkout request")
	}

	url := fmt.Sprintf("%s/%s", strings.TrimRight(c.baseURL, "/"), checkoutSessionsPath)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build checkout request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to create checkout session")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(
			pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"failed to create checkout session",
		)
	}

	var apiResp struct {
		ID          string `json:"id"`
		RedirectURL string `json:"redirect_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout response")
	}
	if apiResp.ID == "" || apiResp.RedirectURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "failed to create checkout session")
	}

	return &CheckoutSession{
		ID:          apiResp.ID,
		RedirectURL: apiResp.RedirectURL,
	}, nil
}
