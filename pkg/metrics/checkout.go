package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics counts order and payment outcomes on the request path and in
// the webhook receiver.
type CheckoutMetrics struct {
	ordersCreated   *prometheus.CounterVec
	ordersFinalized *prometheus.CounterVec
	paymentFailures *prometheus.CounterVec
	webhookEvents   *prometheus.CounterVec
}

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "orders_created_total",
		Help:      "Orders created, by payment method.",
	}, []string{"method"})
	finalized := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "orders_finalized_total",
		Help:      "Finalize attempts, by trigger and result.",
	}, []string{"source", "result"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "payment_failures_total",
		Help:      "Payment provider failures, by stage.",
	}, []string{"stage"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "webhooks",
		Name:      "stripe_events_total",
		Help:      "Stripe webhook events received, by type and outcome.",
	}, []string{"type", "outcome"})
	reg.MustRegister(created, finalized, failures, webhooks)
	return &CheckoutMetrics{
		ordersCreated:   created,
		ordersFinalized: finalized,
		paymentFailures: failures,
		webhookEvents:   webhooks,
	}
}

func (m *CheckoutMetrics) OrderCreated(method string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(method)).Inc()
}

// OrderFinalized records a finalize attempt. applied is false when the order
// was already past pending.
func (m *CheckoutMetrics) OrderFinalized(source string, applied bool) {
	if m == nil || m.ordersFinalized == nil {
		return
	}
	result := "noop"
	if applied {
		result = "applied"
	}
	m.ordersFinalized.WithLabelValues(normalizeLabel(source), result).Inc()
}

func (m *CheckoutMetrics) PaymentFailed(stage string) {
	if m == nil || m.paymentFailures == nil {
		return
	}
	m.paymentFailures.WithLabelValues(normalizeLabel(stage)).Inc()
}

func (m *CheckoutMetrics) WebhookEvent(eventType, outcome string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}
