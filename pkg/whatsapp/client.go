package whatsapp

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

const responseBodyReadLimit int64 = 1024

var (
	errAPIKeyRequired = errors.New("whatsapp api key is required")
	errSenderRequired = errors.New("whatsapp sender phone is required")
)

// Client sends order notifications over the WhatsApp Business API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	senderPhone string
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

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the WhatsApp client from configuration.
func NewClient(cfg config.WhatsAppConfig, opts ...Option) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	sender := strings.TrimSpace(cfg.SenderPhone)
	if sender == "" {
		return nil, errSenderRequired
	}

	client := &Client{
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		baseURL:     strings.TrimSpace(cfg.BaseURL),
		apiKey:      apiKey,
		senderPhone: sender,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.baseURL == "" {
		return nil, errors.New("whatsapp base URL is required")
	}
	return client, nil
}

// SendText sends a plain text message to the given phone number.
func (c *Client) SendText(ctx context.Context, toPhone, body string) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "whatsapp client not configured")
	}
	if strings.TrimSpace(toPhone) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient phone is required")
	}
	if strings.TrimSpace(body) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "message body is required")
	}

	payload, err := json.Marshal(struct {
		MessagingProduct string `json:"messaging_product"`
		To               string `json:"to"`
		Type             string `json:"type"`
		Text             struct {
			Body string `json:"body"`
		} `json:"text"`
	}{
		MessagingProduct: "whatsapp",
		To:               toPhone,
		Type:             "text",
		Text: struct {
			Body string `json:"body"`
		}{Body: body},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal whatsapp payload")
	}

	url := fmt.Sprintf("%s/%s/messages", strings.TrimRight(c.baseURL, "/"), c.senderPhone)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build whatsapp request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute whatsapp request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(
			pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
			"whatsapp send failed",
		)
	}
	return nil
}
