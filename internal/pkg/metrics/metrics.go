package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhooksTotal counts webhook deliveries by event type and pipeline outcome.
	WebhooksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "paddle_billing",
		Name:      "webhooks_total",
		Help:      "Paddle webhook deliveries by event type and outcome.",
	}, []string{"event_type", "outcome"})

	// ReconcileDuration tracks extraction + persistence + dispatch latency.
	ReconcileDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "paddle_billing",
		Name:      "reconcile_duration_seconds",
		Help:      "Duration of transaction reconciliation in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"result"})

	// ListenerFailuresTotal counts failed listener invocations.
	ListenerFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "paddle_billing",
		Name:      "listener_failures_total",
		Help:      "Listener invocations that returned an error or panicked.",
	}, []string{"listener"})

	// CustomerLookupsTotal counts remote customer lookups by result.
	CustomerLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "paddle_billing",
		Name:      "customer_lookups_total",
		Help:      "Remote Paddle customer lookups by result (hit, miss, error).",
	}, []string{"result"})

	// WebhookRequestsTotal counts HTTP webhook requests by status code.
	WebhookRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "paddle_billing",
		Name:      "webhook_requests_total",
		Help:      "Webhook HTTP requests by status code.",
	}, []string{"status"})
)
