// Package metrics registers the prometheus instruments exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Commands counts processed bot commands by verb and outcome.
	Commands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpsbot_commands_total",
		Help: "Bot commands processed, by verb and outcome.",
	}, []string{"command", "status"})

	// ProviderRequests counts outbound provider API calls.
	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpsbot_provider_requests_total",
		Help: "Provider API calls, by provider, operation and outcome.",
	}, []string{"provider", "op", "outcome"})

	// WebhookRequests counts inbound webhook deliveries by response class.
	WebhookRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpsbot_webhook_requests_total",
		Help: "Webhook deliveries, by result.",
	}, []string{"result"})
)
