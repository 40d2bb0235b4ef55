// Package metrics holds the Prometheus collectors of the SketchHub server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Favorites
	FavoriteTogglesTotal *prometheus.CounterVec

	// Broadcast
	BroadcastPublishedTotal *prometheus.CounterVec
	BroadcastDroppedTotal   *prometheus.CounterVec
	RelayErrorsTotal        *prometheus.CounterVec
	WSConnections           prometheus.Gauge
}

// New registers every collector on reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sketchhub_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sketchhub_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		FavoriteTogglesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sketchhub_favorite_toggles_total",
				Help: "Favorite add/remove attempts by outcome",
			},
			[]string{"op", "result"},
		),
		BroadcastPublishedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sketchhub_broadcast_published_total",
				Help: "Change events delivered to local subscribers",
			},
			[]string{"channel", "event"},
		),
		BroadcastDroppedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sketchhub_broadcast_dropped_total",
				Help: "Change events dropped because a subscriber buffer was full",
			},
			[]string{"channel"},
		),
		RelayErrorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sketchhub_broadcast_relay_errors_total",
				Help: "Redis relay failures",
			},
			[]string{"op"},
		),
		WSConnections: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "sketchhub_ws_connections",
				Help: "Open WebSocket connections",
			},
		),
	}
}
