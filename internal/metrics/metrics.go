// Package metrics holds the Prometheus collectors shared by the proxy.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "policychat_http_requests_total",
			Help: "Total number of HTTP requests handled by the proxy",
		},
		[]string{"route", "status"},
	)

	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "policychat_upstream_requests_total",
			Help: "Total number of calls to the generative API by outcome",
		},
		[]string{"outcome"},
	)

	UpstreamDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "policychat_upstream_duration_seconds",
			Help:    "Duration of calls to the generative API in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64, 128},
		},
	)

	PageFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "policychat_page_fetches_total",
			Help: "Total number of document fetches by outcome",
		},
		[]string{"outcome"},
	)
)

// Outcome label values shared by upstream calls and page fetches.
const (
	OutcomeSuccess   = "success"
	OutcomeTransport = "transport_error"
	OutcomeUpstream  = "upstream_error"
	OutcomeMalformed = "malformed_response"
	OutcomeInvalid   = "invalid"
)
