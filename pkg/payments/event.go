package payments

// Webhook event types delivered by the gateway.
const (
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentFailed    = "payment.failed"
	EventPaymentCanceled  = "payment.canceled"
)

// WebhookEvent is the decoded gateway delivery payload.
type WebhookEvent struct {
	ID   string           `json:"id"`
	Type string           `json:"type"`
	Data WebhookEventData `json:"data"`
}

// WebhookEventData carries the payment facts the reconciler needs. Reference
// echoes the metadata stamped on checkout creation (the ledger entry id).
type WebhookEventData struct {
	CheckoutID  string `json:"checkout_id"`
	Reference   string `json:"reference"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	PaymentRef  string `json:"payment_ref"`
}
