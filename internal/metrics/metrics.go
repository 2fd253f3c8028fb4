// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequests counts served requests, labelled by the mux pattern.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketd_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"method", "route", "status"})

	// HTTPLatency observes handler duration per route.
	HTTPLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marketd_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// CheckoutsStarted counts Start calls; p2p is "true" for escrow listings.
	CheckoutsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketd_checkouts_started_total",
		Help: "Checkouts opened, split by escrow flow.",
	}, []string{"p2p"})

	// CheckoutsCompleted counts ledger appends by payment method.
	CheckoutsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketd_checkouts_completed_total",
		Help: "Checkouts that reached success, by payment method.",
	}, []string{"method"})

	// CheckoutsRejected counts spending-ceiling refusals.
	CheckoutsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketd_checkouts_rejected_total",
		Help: "Checkout steps refused by the spending ceiling.",
	})

	// AssistantCalls counts generator requests (chat, describe, negotiate).
	AssistantCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketd_assistant_calls_total",
		Help: "Text generation requests by operation.",
	}, []string{"operation"})

	// AssistantFallbacks counts requests answered without the generator.
	AssistantFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketd_assistant_fallbacks_total",
		Help: "Generation requests answered with the fixed fallback.",
	}, []string{"operation"})

	// MessagesSent counts appended chat messages.
	MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketd_messages_sent_total",
		Help: "Chat messages appended, by encryption badge.",
	}, []string{"encrypted"})

	// TierUpgrades counts completed verification scans.
	TierUpgrades = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketd_tier_upgrades_total",
		Help: "Completed verification scans by resulting tier.",
	}, []string{"tier"})

	// WSClients is the number of connected WebSocket clients.
	WSClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "marketd_ws_clients",
		Help: "Connected WebSocket clients.",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
