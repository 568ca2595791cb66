package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/api/responses"
	pkgerrors "github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/errors"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/logger"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/metrics"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/payments"
)

type PaymentEventService interface {
	HandleEvent(ctx context.Context, event payments.WebhookEvent) error
}

type paymentWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type signatureVerifier interface {
	Verify(id, timestamp, signatureHeader string, body []byte, now time.Time) error
}

// PaymentsWebhook receives top-up settlement events from the payment gateway.
// Signature or timestamp failures get a 400 so the sender knows the delivery
// was rejected; failures past verification return 200 to keep the gateway from
// retry-storming — reconciliation catches up on the next legitimate delivery.
func PaymentsWebhook(svc PaymentEventService, verifier signatureVerifier, guard paymentWebhookGuard, m *metrics.PlatformMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook verifier unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		if err := verifier.Verify(
			r.Header.Get("webhook-id"),
			r.Header.Get("webhook-timestamp"),
			r.Header.Get("webhook-signature"),
			payload,
			time.Now(),
		); err != nil {
			if m != nil {
				m.IncWebhookRejected(rejectionReason(err))
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "webhook verification failed"))
			return
		}

		var event payments.WebhookEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			if m != nil {
				m.IncWebhookRejected("malformed_payload")
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event"))
			return
		}

		eventID := strings.TrimSpace(event.ID)
		if eventID == "" {
			eventID = r.Header.Get("webhook-id")
		}

		alreadyProcessed, err := guard.CheckAndMark(ctx, eventID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			responses.WriteSuccess(w, nil)
			return
		}

		if err := svc.HandleEvent(ctx, event); err != nil {
			// Drop the mark so a redelivery gets a clean attempt.
			_ = guard.Delete(ctx, eventID)
			if logg != nil {
				logg.Error(ctx, fmt.Sprintf("payment event %s failed", eventID), err)
			}
			responses.WriteSuccess(w, nil)
			return
		}

		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("payment event %s processed", eventID))
		}
		responses.WriteSuccess(w, nil)
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, payments.ErrMissingHeaders):
		return "missing_headers"
	case errors.Is(err, payments.ErrStaleTimestamp):
		return "stale_timestamp"
	case errors.Is(err, payments.ErrSignatureMismatch):
		return "signature_mismatch"
	default:
		return "invalid_headers"
	}
}
