package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels shared by the checkout counters.
const (
	OutcomeSuccess     = "success"
	OutcomeRejected    = "rejected"
	OutcomeUnavailable = "unavailable"
	OutcomeVendorError = "vendor_error"
	OutcomeTimeout     = "timeout"
	OutcomeReplayed    = "replayed"
	OutcomeNotComplete = "not_completed"
	OutcomeMismatch    = "mismatch"
)

// CheckoutMetrics records payment-intent, confirmation and vendor latency metrics.
type CheckoutMetrics struct {
	intents       *prometheus.CounterVec
	confirmations *prometheus.CounterVec
	vendor        *prometheus.HistogramVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	intents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_intents_total",
		Help: "Payment intent creation attempts by outcome.",
	}, []string{"outcome"})
	confirmations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_confirmations_total",
		Help: "Order confirmation attempts by outcome.",
	}, []string{"outcome"})
	vendor := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stripe_request_duration_seconds",
		Help:    "Duration of Stripe API calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(intents, confirmations, vendor)
	return &CheckoutMetrics{
		intents:       intents,
		confirmations: confirmations,
		vendor:        vendor,
	}
}

// IncIntent increments the intent counter for the outcome.
func (c *CheckoutMetrics) IncIntent(outcome string) {
	if c == nil || c.intents == nil {
		return
	}
	c.intents.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncConfirmation increments the confirmation counter for the outcome.
func (c *CheckoutMetrics) IncConfirmation(outcome string) {
	if c == nil || c.confirmations == nil {
		return
	}
	c.confirmations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveStripeRequest records the duration of a vendor call.
func (c *CheckoutMetrics) ObserveStripeRequest(operation string, duration time.Duration) {
	if c == nil || c.vendor == nil {
		return
	}
	c.vendor.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
