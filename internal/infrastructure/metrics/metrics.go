package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DM-API Metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "dm_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status", "model", "stream"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "dm_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint", "status"},
	)

	// Relay turns by outcome
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "dm_api",
			Name:      "turns_total",
			Help:      "Completed DM turns by outcome",
		},
		[]string{"model", "outcome", "storage_mode"},
	)

	TurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "dm_api",
			Name:      "turn_duration_seconds",
			Help:      "Duration of a full DM turn including images",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"model", "outcome"},
	)

	// Upstream failures
	UpstreamErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "dm_api",
			Name:      "upstream_errors_total",
			Help:      "Upstream completion failures by class",
		},
		[]string{"model", "failure"},
	)

	// Image generation
	ImagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "dm_api",
			Name:      "images_total",
			Help:      "Image generation attempts",
		},
		[]string{"status"},
	)

	ImageDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "dm_api",
			Name:      "image_duration_seconds",
			Help:      "Image generation duration in seconds",
			Buckets:   []float64{1, 2, 5, 10, 30, 60, 120},
		},
	)

	// Context window
	TruncatedMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "dm_api",
			Name:      "truncated_messages_total",
			Help:      "Messages dropped from the context window",
		},
		[]string{"model"},
	)

	// Active streaming connections gauge
	ActiveStreams = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "jan",
			Subsystem: "dm_api",
			Name:      "active_streams",
			Help:      "Currently active streaming connections",
		},
		[]string{"model"},
	)

	// Conversations
	GamesCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "dm_api",
			Name:      "games_created_total",
			Help:      "Total games created",
		},
	)

	ConversationsPurgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "dm_api",
			Name:      "conversations_purged_total",
			Help:      "Conversations removed by the retention sweep",
		},
	)

	// User agent metrics (normalized to keep low cardinality)
	UserAgentFamilyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "dm_api",
			Name:      "user_agent_family_total",
			Help:      "Requests by user agent family (browser/cli/sdk/unknown)",
		},
		[]string{"family"},
	)
)

// RecordRequest records an HTTP request with all relevant labels
func RecordRequest(method, endpoint, status, model string, stream bool, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status, model, boolLabel(stream)).Inc()
	RequestDuration.WithLabelValues(method, endpoint, status).Observe(durationSec)
}

// RecordTurn records a finished relay turn. failure is empty on success.
func RecordTurn(model, failure, storageMode string, dropped int, durationSec float64) {
	outcome := "success"
	if failure != "" {
		outcome = failure
		if failure != "cancelled" {
			UpstreamErrorsTotal.WithLabelValues(labelOrUnknown(model), failure).Inc()
		}
	}
	TurnsTotal.WithLabelValues(labelOrUnknown(model), outcome, labelOrUnknown(storageMode)).Inc()
	TurnDuration.WithLabelValues(labelOrUnknown(model), outcome).Observe(durationSec)
	if dropped > 0 {
		TruncatedMessagesTotal.WithLabelValues(labelOrUnknown(model)).Add(float64(dropped))
	}
}

// RecordImage records one image generation attempt
func RecordImage(success bool, durationSec float64) {
	status := "success"
	if !success {
		status = "error"
	}
	ImagesTotal.WithLabelValues(status).Inc()
	ImageDuration.Observe(durationSec)
}

// IncrementActiveStreams increments the active streams gauge
func IncrementActiveStreams(model string) {
	ActiveStreams.WithLabelValues(labelOrUnknown(model)).Inc()
}

// DecrementActiveStreams decrements the active streams gauge
func DecrementActiveStreams(model string) {
	ActiveStreams.WithLabelValues(labelOrUnknown(model)).Dec()
}

func RecordGameCreated() {
	GamesCreatedTotal.Inc()
}

func RecordPurge(removed int) {
	ConversationsPurgedTotal.Add(float64(removed))
}

// RecordUserAgent records UA metrics bucketed by family
func RecordUserAgent(ua string) {
	UserAgentFamilyTotal.WithLabelValues(userAgentFamily(normalizeUserAgent(ua))).Inc()
}

func boolLabel(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

func labelOrUnknown(v string) string {
	if strings.TrimSpace(v) == "" {
		return "unknown"
	}
	return v
}

func normalizeUserAgent(ua string) string {
	ua = strings.TrimSpace(strings.ToLower(ua))
	if ua == "" {
		return "unknown"
	}
	parts := strings.Fields(ua)
	norm := parts[0]
	if len(norm) > 60 {
		norm = norm[:60]
	}
	return norm
}

func userAgentFamily(normUA string) string {
	switch {
	case strings.Contains(normUA, "mozilla") || strings.Contains(normUA, "chrome") || strings.Contains(normUA, "safari"):
		return "browser"
	case strings.Contains(normUA, "curl") || strings.Contains(normUA, "wget") || strings.Contains(normUA, "httpie"):
		return "cli"
	case strings.Contains(normUA, "python-requests") || strings.Contains(normUA, "go-http-client") || strings.Contains(normUA, "axios"):
		return "sdk"
	default:
		return "unknown"
	}
}
