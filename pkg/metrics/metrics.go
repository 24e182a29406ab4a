// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Redirect outcomes
const (
	OutcomeDestination = "destination"
	OutcomeFallback    = "fallback"
	OutcomeUnknown     = "unknown"
	OutcomeError       = "error"
	OutcomeLimited     = "rate_limited"
)

var (
	Redirects = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qrtrackr",
		Name:      "redirects_total",
		Help:      "Short code redirects by outcome.",
	}, []string{"outcome"})

	ScansRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qrtrackr",
		Name:      "scans_recorded_total",
		Help:      "Scan events persisted, by result.",
	}, []string{"result"})

	ScanQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "qrtrackr",
		Name:      "scan_queue_depth",
		Help:      "Scan events waiting for a worker.",
	})

	ImagesGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qrtrackr",
		Name:      "images_generated_total",
		Help:      "QR images served, by cache result.",
	}, []string{"cache"})

	DestinationsDown = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "qrtrackr",
		Name:      "destinations_unreachable",
		Help:      "External destinations that failed the last health check.",
	})
)
