package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PlatformMetrics records the business-level counters the dashboard graphs.
type PlatformMetrics struct {
	ordersPlaced      *prometheus.CounterVec
	feesCharged       prometheus.Counter
	feeCentsTotal     prometheus.Counter
	webhooksProcessed *prometheus.CounterVec
	webhooksRejected  *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
}

// NewPlatformMetrics registers the platform metrics on the provided registerer.
func NewPlatformMetrics(reg prometheus.Registerer) *PlatformMetrics {
	if reg == nil {
		return &PlatformMetrics{}
	}
	ordersPlaced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders placed, by provenance.",
	}, []string{"provenance"})
	feesCharged := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "platform_fees_charged_total",
		Help: "Platform fee debits applied to store ledgers.",
	})
	feeCentsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "platform_fee_cents_total",
		Help: "Cumulative platform fee amount in cents.",
	})
	webhooksProcessed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhooks_processed_total",
		Help: "Gateway webhook deliveries accepted, by event type.",
	}, []string{"type"})
	webhooksRejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhooks_rejected_total",
		Help: "Gateway webhook deliveries rejected, by reason.",
	}, []string{"reason"})
	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})
	reg.MustRegister(ordersPlaced, feesCharged, feeCentsTotal, webhooksProcessed, webhooksRejected, requestDuration)
	return &PlatformMetrics{
		ordersPlaced:      ordersPlaced,
		feesCharged:       feesCharged,
		feeCentsTotal:     feeCentsTotal,
		webhooksProcessed: webhooksProcessed,
		webhooksRejected:  webhooksRejected,
		requestDuration:   requestDuration,
	}
}

// IncOrderPlaced counts a placed order by provenance.
func (m *PlatformMetrics) IncOrderPlaced(provenance string) {
	if m == nil || m.ordersPlaced == nil {
		return
	}
	m.ordersPlaced.WithLabelValues(normalizeLabel(provenance)).Inc()
}

// IncFeeCharged records a platform fee debit.
func (m *PlatformMetrics) IncFeeCharged(amountCents int64) {
	if m == nil || m.feesCharged == nil {
		return
	}
	m.feesCharged.Inc()
	if amountCents > 0 {
		m.feeCentsTotal.Add(float64(amountCents))
	}
}

// IncWebhookProcessed counts an accepted gateway delivery by event type.
func (m *PlatformMetrics) IncWebhookProcessed(eventType string) {
	if m == nil || m.webhooksProcessed == nil {
		return
	}
	m.webhooksProcessed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncWebhookRejected counts a rejected gateway delivery by reason.
func (m *PlatformMetrics) IncWebhookRejected(reason string) {
	if m == nil || m.webhooksRejected == nil {
		return
	}
	m.webhooksRejected.WithLabelValues(normalizeLabel(reason)).Inc()
}

// ObserveRequestDuration records the handler latency for the given route.
func (m *PlatformMetrics) ObserveRequestDuration(route, method string, duration time.Duration) {
	if m == nil || m.requestDuration == nil {
		return
	}
	m.requestDuration.WithLabelValues(normalizeLabel(route), normalizeLabel(method)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
