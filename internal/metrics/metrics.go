package metrics

import (
	"fmt"
	"strconv"

	"github.com/FranksOps/trendscout/internal/capture"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every trendscout collector. A dedicated registry keeps the
// textfile output free of collectors registered by libraries.
var Registry = prometheus.NewRegistry()

var (
	factory = promauto.With(Registry)

	RequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendscout_requests_total",
			Help: "Total number of requests sent to Google Trends endpoints",
		},
		[]string{"endpoint", "status"},
	)

	RequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trendscout_request_duration_seconds",
			Help:    "Duration of Google Trends requests in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"endpoint"},
	)

	ResponseBytesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendscout_response_bytes_total",
			Help: "Total bytes read from Google Trends responses",
		},
		[]string{"endpoint"},
	)

	BlockedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendscout_blocked_total",
			Help: "Responses recognised as anti-bot challenges or throttling",
		},
		[]string{"endpoint", "source"},
	)

	TrendsReported = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trendscout_items_reported",
			Help: "Number of items printed by the last report",
		},
		[]string{"report"},
	)
)

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
}

// RecordCapture updates the request metrics for a completed exchange.
func RecordCapture(c *capture.Capture) {
	if c == nil {
		return
	}

	RequestsTotal.WithLabelValues(c.Endpoint, strconv.Itoa(c.StatusCode)).Inc()
	RequestDuration.WithLabelValues(c.Endpoint).Observe(c.Duration.Seconds())
	ResponseBytesTotal.WithLabelValues(c.Endpoint).Add(float64(len(c.Body)))
	if c.Blocked {
		BlockedTotal.WithLabelValues(c.Endpoint, c.BlockedBy).Inc()
	}
}

// RecordError counts a request that failed before any response arrived.
func RecordError(endpoint string) {
	RequestsTotal.WithLabelValues(endpoint, "error").Inc()
}

// RecordReported stores how many rows a report printed.
func RecordReported(report string, n int) {
	TrendsReported.WithLabelValues(report).Set(float64(n))
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
// The file is written atomically, so a collector never sees a partial dump.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("metrics: write textfile: %w", err)
	}
	return nil
}
