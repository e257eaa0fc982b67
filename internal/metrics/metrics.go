package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the service's Prometheus collectors. Constructed once
// in main and passed down; nothing registers against the default
// registry.
type Metrics struct {
	Registry *prometheus.Registry

	GrantsApplied            prometheus.Counter
	GrantsDeduplicated       prometheus.Counter
	ReservationsDeclined     prometheus.Counter
	RefundsFailed            prometheus.Counter
	WebhookSignatureFailures prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		GrantsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vidspark_credit_grants_applied_total",
			Help: "Payment events that resulted in a credit grant.",
		}),
		GrantsDeduplicated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vidspark_credit_grants_deduplicated_total",
			Help: "Payment events skipped because their grant was already applied.",
		}),
		ReservationsDeclined: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vidspark_credit_reservations_declined_total",
			Help: "Credit reservations declined for insufficient balance.",
		}),
		RefundsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vidspark_credit_refunds_failed_total",
			Help: "Compensating refunds that could not be applied.",
		}),
		WebhookSignatureFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vidspark_webhook_signature_failures_total",
			Help: "Stripe webhook deliveries rejected for a bad signature.",
		}),
	}

	m.Registry.MustRegister(
		m.GrantsApplied,
		m.GrantsDeduplicated,
		m.ReservationsDeclined,
		m.RefundsFailed,
		m.WebhookSignatureFailures,
	)
	return m
}
