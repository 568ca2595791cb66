package mailer

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
	sendPath                    = "emails"
	responseBodyReadLimit int64 = 1024
)

var errAPIKeyRequired = errors.New("mail api key is required")

// Client sends transactional email through the configured provider.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	defaultFrom string
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

// WithBaseURL overrides the configured provider base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the mail client from configuration.
func NewClient(cfg config.MailConfig, opts ...Option) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		baseURL:     strings.TrimSpace(cfg.BaseURL),
		apiKey:      apiKey,
		defaultFrom: strings.TrimSpace(cfg.DefaultFrom),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.baseURL == "" {
		return nil, errors.New("mail base URL is required")
	}
	return client, nil
}

// Message is a single transactional email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Send delivers the message through the provider API.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "mail client not configured")
	}
	if strings.TrimSpace(msg.To) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient address is required")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "subject is required")
	}

	payload, err := json.Marshal(struct {
		From    string `json:"from"`
		To      string `json:"to"`
		Subject string `json:"subject"`
		HTML    string `json:"html,omitempty"`
		Text    string `json:"text,omitempty"`
	}{
		From:    c.defaultFrom,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal email payload")
	}

	url := fmt.Sprintf("%s/%s", strings.TrimRight(c.baseURL, "/"), sendPath)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build email request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute email request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(
			pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
			"email send failed",
		)
	}
	return nil
}
