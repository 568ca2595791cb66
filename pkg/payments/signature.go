package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Standard-webhooks header names the gateway sends on every delivery.
const (
	HeaderWebhookID        = "webhook-id"
	HeaderWebhookTimestamp = "webhook-timestamp"
	HeaderWebhookSignature = "webhook-signature"
)

const (
	secretPrefix    = "whsec_"
	signatureScheme = "v1"

	// DefaultTolerance bounds how far a delivery timestamp may drift from
	// server time before the payload is treated as a replay.
	DefaultTolerance = 3 * time.Minute
)

var (
	// ErrSignatureMismatch means no signature candidate matched the payload.
	ErrSignatureMismatch = errors.New("webhook signature mismatch")
	// ErrStaleTimestamp means the delivery is outside the freshness window.
	ErrStaleTimestamp = errors.New("webhook timestamp outside tolerance")
	// ErrMissingHeaders means one of the required webhook headers is absent.
	ErrMissingHeaders = errors.New("webhook headers missing")
)

// Verifier checks standard-webhooks signatures from the payment gateway.
type Verifier struct {
	key       []byte
	tolerance time.Duration
}

// NewVerifier parses the whsec_-prefixed base64 signing secret.
func NewVerifier(secret string, tolerance time.Duration) (*Verifier, error) {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return nil, errors.New("webhook secret is required")
	}
	if !strings.HasPrefix(trimmed, secretPrefix) {
		return nil, fmt.Errorf("webhook secret must start with %q", secretPrefix)
	}
	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(trimmed, secretPrefix))
	if err != nil {
		return nil, fmt.Errorf("decode webhook secret: %w", err)
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Verifier{key: key, tolerance: tolerance}, nil
}

// Verify validates the signature header against the raw request body.
// The signed content is "{id}.{timestamp}.{body}" and the header carries
// space-separated "v1,<base64>" candidates; any single match passes.
func (v *Verifier) Verify(id, timestamp, signatureHeader string, body []byte, now time.Time) error {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(timestamp) == "" || strings.TrimSpace(signatureHeader) == "" {
		return ErrMissingHeaders
	}

	unix, err := strconv.ParseInt(strings.TrimSpace(timestamp), 10, 64)
	if err != nil {
		return fmt.Errorf("parse webhook timestamp: %w", err)
	}
	sent := time.Unix(unix, 0)
	drift := now.Sub(sent)
	if drift < 0 {
		drift = -drift
	}
	if drift > v.tolerance {
		return ErrStaleTimestamp
	}

	expected := v.sign(id, timestamp, body)
	for _, candidate := range strings.Fields(signatureHeader) {
		parts := strings.SplitN(candidate, ",", 2)
		if len(parts) != 2 || parts[0] != signatureScheme {
			continue
		}
		if hmac.Equal([]byte(parts[1]), []byte(expected)) {
			return nil
		}
	}
	return ErrSignatureMismatch
}

// Sign produces the "v1,<base64>" signature for the given delivery. Exposed
// for local tooling that replays gateway deliveries against a dev server.
func (v *Verifier) Sign(id, timestamp string, body []byte) string {
	return signatureScheme + "," + v.sign(id, timestamp, body)
}

func (v *Verifier) sign(id, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, v.key)
	fmt.Fprintf(mac, "%s.%s.", id, timestamp)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
