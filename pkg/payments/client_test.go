package payments

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/config"
	pkgerrors "github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/errors"
)

func testPaymentsConfig() config.PaymentsConfig {
	return config.PaymentsConfig{
		BaseURL:    "http://gateway.test",
		APIKey:     "test-key",
		SuccessURL: "/dashboard/credit?topup=success",
		CancelURL:  "/dashboard/credit?topup=cancelled",
	}
}

func TestCreateCheckoutRequest(t *testing.T) {
	const expectedURL = "http://gateway.test/v1/checkout/sessions"
	respBody := `{"id":"cs_123","redirect_url":"https://gateway.test/pay/cs_123"}`

	var capturedURL string
	var capturedHeaders http.Header

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedHeaders = req.Header.Clone()

		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read request body: %v", err)
		}
		var payload map[string]any
		if err := json.Unmarshal(bodyBytes, &payload); err != nil {
			t.Fatalf("unmarshal request body: %v", err)
		}
		if payload["amount_cents"] != float64(7000) {
			t.Fatalf("unexpected amount %v", payload["amount_cents"])
		}
		if payload["reference"] != "entry-uuid" {
			t.Fatalf("unexpected reference %v", payload["reference"])
		}
		if payload["currency"] != "ZAR" {
			t.Fatalf("unexpected currency %v", payload["currency"])
		}

		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient(testPaymentsConfig(), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	session, err := client.CreateCheckout(context.Background(), CheckoutRequest{
		AmountCents: 7000,
		Currency:    "ZAR",
		Reference:   "entry-uuid",
		Description: "Store credit top-up",
	})
	if err != nil {
		t.Fatalf("create checkout: %v", err)
	}
	if capturedURL != expectedURL {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if capturedHeaders.Get("Authorization") != "Bearer test-key" {
		t.Fatalf("authorization header missing")
	}
	if session.ID != "cs_123" {
		t.Fatalf("unexpected session id %q", session.ID)
	}
	if session.RedirectURL != "https://gateway.test/pay/cs_123" {
		t.Fatalf("unexpected redirect %q", session.RedirectURL)
	}
}

func TestCreateCheckoutGatewayFailure(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusBadGateway,
			Body:       io.NopCloser(strings.NewReader(`{"error":"upstream"}`)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient(testPaymentsConfig(), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.CreateCheckout(context.Background(), CheckoutRequest{
		AmountCents: 5000,
		Currency:    "ZAR",
		Reference:   "entry-uuid",
	})
	if err == nil {
		t.Fatalf("expected gateway error")
	}
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if !strings.Contains(appErr.Message(), "failed to create checkout session") {
		t.Fatalf("unexpected message %q", appErr.Message())
	}
}

func TestCreateCheckoutValidation(t *testing.T) {
	client, err := NewClient(testPaymentsConfig())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, err := client.CreateCheckout(context.Background(), CheckoutRequest{AmountCents: 0, Reference: "x"}); err == nil {
		t.Fatalf("expected validation error for zero amount")
	}
	if _, err := client.CreateCheckout(context.Background(), CheckoutRequest{AmountCents: 5000}); err == nil {
		t.Fatalf("expected validation error for missing reference")
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	cfg := testPaymentsConfig()
	cfg.APIKey = "  "
	if _, err := NewClient(cfg); err == nil {
		t.Fatalf("expected error for missing api key")
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
