// Package metrics defines the Prometheus collectors exported by the server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "wellness"

var (
	// Labels: field, outcome (extracted, no_extraction, prefiltered)
	extractionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "extraction",
		Name:      "total",
		Help:      "Extraction attempts by field and outcome",
	}, []string{"field", "outcome"})

	// Labels: provider, outcome (success, error, unavailable)
	llmRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "llm",
		Name:      "requests_total",
		Help:      "Text generation requests by provider and outcome",
	}, []string{"provider", "outcome"})

	llmRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "llm",
		Name:      "request_duration_seconds",
		Help:      "Text generation latency by provider",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"provider"})

	llmFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "llm",
		Name:      "fallbacks_total",
		Help:      "Questions served from the local fallback table",
	})

	wsActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Open websocket conversations",
	})

	// Labels: direction (in, out), type (event type)
	wsMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ws",
		Name:      "messages_total",
		Help:      "Websocket messages by event type",
	}, []string{"direction", "type"})

	// Labels: result (hit, miss, error)
	cacheOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "operations_total",
		Help:      "Profile cache lookups by result",
	}, []string{"result"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route pattern, method and status",
	}, []string{"route", "method", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route pattern",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})
)

// RecordExtraction counts one extraction attempt.
func RecordExtraction(field, outcome string) {
	extractionTotal.WithLabelValues(field, outcome).Inc()
}

// RecordLLMRequest records a provider attempt and its latency.
func RecordLLMRequest(provider, outcome string, elapsed time.Duration) {
	llmRequestsTotal.WithLabelValues(provider, outcome).Inc()
	if outcome != "unavailable" {
		llmRequestDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
	}
}

// RecordLLMFallback counts a question served without a provider.
func RecordLLMFallback() {
	llmFallbacksTotal.Inc()
}

// ConnectionOpened increments the open connection gauge.
func ConnectionOpened() {
	wsActiveConnections.Inc()
}

// ConnectionClosed decrements the open connection gauge.
func ConnectionClosed() {
	wsActiveConnections.Dec()
}

// RecordMessage counts a websocket event. direction is "in" or "out".
func RecordMessage(direction, eventType string) {
	wsMessagesTotal.WithLabelValues(direction, eventType).Inc()
}

// RecordCache counts a cache lookup result.
func RecordCache(result string) {
	cacheOpsTotal.WithLabelValues(result).Inc()
}

// RecordHTTP records a finished HTTP request.
func RecordHTTP(route, method, status string, elapsed time.Duration) {
	httpRequestsTotal.WithLabelValues(route, method, status).Inc()
	httpRequestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}
