// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Feed metrics
	FeedConnected      prometheus.Gauge
	ReconnectAttempts  prometheus.Counter
	EventsReceived     *prometheus.CounterVec
	EventsUnrecognized prometheus.Counter

	// Enrichment metrics
	EnrichmentOutcomes *prometheus.CounterVec
	EnrichmentLatency  *prometheus.HistogramVec

	// Ingestion metrics
	TokensUpserted prometheus.Counter
	EventsArchived *prometheus.CounterVec
	IngestErrors   *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// API metrics
	HTTPRequests       *prometheus.CounterVec
	HTTPRequestLatency *prometheus.HistogramVec

	// Health metrics
	LastEventTimestamp prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "pumpwatch"
	}

	return &Metrics{
		// Feed metrics
		FeedConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "connected",
			Help:      "1 when the WebSocket feed is connected, 0 otherwise",
		}),
		ReconnectAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnect_attempts_total",
			Help:      "Total number of WebSocket reconnect attempts",
		}),
		EventsReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "events_received_total",
			Help:      "Total number of feed events received by kind",
		}, []string{"kind"}),
		EventsUnrecognized: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "events_unrecognized_total",
			Help:      "Total number of feed messages that did not decode to a known event",
		}),

		// Enrichment metrics
		EnrichmentOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrich",
			Name:      "outcomes_total",
			Help:      "Total number of enrichment attempts by stage and outcome",
		}, []string{"stage", "outcome"}),
		EnrichmentLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "enrich",
			Name:      "latency_seconds",
			Help:      "Enrichment stage latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),

		// Ingestion metrics
		TokensUpserted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "tokens_upserted_total",
			Help:      "Total number of token records upserted",
		}),
		EventsArchived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "events_archived_total",
			Help:      "Total number of events written to the archive by kind",
		}, []string{"kind"}),
		IngestErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "errors_total",
			Help:      "Total number of ingestion errors by stage",
		}, []string{"stage"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status",
		}, []string{"route", "status"}),
		HTTPRequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_latency_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		// Health metrics
		LastEventTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_event_timestamp",
			Help:      "Unix timestamp of the last accepted feed event",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// SetFeedConnected updates the feed connectivity gauge.
func SetFeedConnected(connected bool) {
	if connected {
		DefaultMetrics.FeedConnected.Set(1)
	} else {
		DefaultMetrics.FeedConnected.Set(0)
	}
}

// RecordReconnectAttempt increments the reconnect attempts counter.
func RecordReconnectAttempt() {
	DefaultMetrics.ReconnectAttempts.Inc()
}

// RecordEventReceived increments the events received counter for a kind.
func RecordEventReceived(kind string) {
	DefaultMetrics.EventsReceived.WithLabelValues(kind).Inc()
}

// RecordEventUnrecognized increments the unrecognized messages counter.
func RecordEventUnrecognized() {
	DefaultMetrics.EventsUnrecognized.Inc()
}

// RecordEnrichment records an enrichment stage outcome and its latency.
func RecordEnrichment(stage, outcome string, seconds float64) {
	DefaultMetrics.EnrichmentOutcomes.WithLabelValues(stage, outcome).Inc()
	DefaultMetrics.EnrichmentLatency.WithLabelValues(stage).Observe(seconds)
}

// RecordTokenUpserted increments the tokens upserted counter and bumps
// the last-event health gauge.
func RecordTokenUpserted(timestampMs int64) {
	DefaultMetrics.TokensUpserted.Inc()
	DefaultMetrics.LastEventTimestamp.Set(float64(timestampMs) / 1000)
}

// RecordEventArchived increments the archived events counter for a kind.
func RecordEventArchived(kind string) {
	DefaultMetrics.EventsArchived.WithLabelValues(kind).Inc()
}

// RecordIngestError records an ingestion error by stage.
func RecordIngestError(stage string) {
	DefaultMetrics.IngestErrors.WithLabelValues(stage).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordHTTPRequest records an API request with its status and latency.
func RecordHTTPRequest(route string, status int, seconds float64) {
	DefaultMetrics.HTTPRequests.WithLabelValues(route, httpStatusClass(status)).Inc()
	DefaultMetrics.HTTPRequestLatency.WithLabelValues(route).Observe(seconds)
}

func httpStatusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
