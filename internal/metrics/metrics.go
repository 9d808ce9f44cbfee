// Package metrics provides Prometheus instrumentation for the Churnsight platform.
package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "churnsight",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "churnsight",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// DetectionsTotal counts text detections by resolved primary intent.
	DetectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "churnsight",
			Name:      "detections_total",
			Help:      "Total detections by primary intent.",
		},
		[]string{"intent"},
	)

	// InterventionsTriggeredTotal counts triggered interventions by type.
	InterventionsTriggeredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "churnsight",
			Name:      "interventions_triggered_total",
			Help:      "Total retention interventions triggered by type.",
		},
		[]string{"type"},
	)

	// SignalsRecordedTotal counts churn signals recorded by type.
	SignalsRecordedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "churnsight",
			Name:      "signals_recorded_total",
			Help:      "Total churn signals recorded by signal type.",
		},
		[]string{"type"},
	)

	// RiskComputationsTotal counts risk score computations by resulting level.
	RiskComputationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "churnsight",
			Name:      "risk_computations_total",
			Help:      "Total risk score computations by resulting level.",
		},
		[]string{"level"},
	)

	// RiskLevelTransitionsTotal counts discrete risk level changes.
	RiskLevelTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "churnsight",
			Name:      "risk_level_transitions_total",
			Help:      "Total risk level transitions by direction.",
		},
		[]string{"direction"},
	)

	// DetectionDuration observes end-to-end detection pipeline latency.
	DetectionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "churnsight",
		Name:      "detection_duration_seconds",
		Help:      "Detection pipeline duration in seconds.",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
	})

	// EventsDroppedTotal counts domain events dropped because the bus was full.
	EventsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "churnsight",
			Name:      "events_dropped_total",
			Help:      "Total domain events dropped due to a full bus queue.",
		},
		[]string{"topic"},
	)

	// WebhookDeliveriesTotal counts webhook delivery attempts by result.
	WebhookDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "churnsight",
			Name:      "webhook_deliveries_total",
			Help:      "Total webhook deliveries by result.",
		},
		[]string{"result"},
	)

	// StripeEventsTotal counts inbound Stripe webhook events by type and outcome.
	StripeEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "churnsight",
			Name:      "stripe_events_total",
			Help:      "Total inbound Stripe webhook events by type and outcome.",
		},
		[]string{"type", "outcome"},
	)

	// ActiveWebSocketClients tracks connected WebSocket clients.
	ActiveWebSocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "churnsight",
			Name:      "active_websocket_clients",
			Help:      "Number of currently connected WebSocket clients.",
		},
	)

	// DBOpenConnections tracks open database connections.
	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "churnsight", Name: "db_open_connections",
		Help: "Number of open database connections.",
	})
	// DBIdleConnections tracks idle database connections.
	DBIdleConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "churnsight", Name: "db_idle_connections",
		Help: "Number of idle database connections.",
	})
	// DBInUseConnections tracks in-use database connections.
	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "churnsight", Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	})
	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "churnsight", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		DetectionsTotal,
		InterventionsTriggeredTotal,
		SignalsRecordedTotal,
		RiskComputationsTotal,
		RiskLevelTransitionsTotal,
		DetectionDuration,
		EventsDroppedTotal,
		WebhookDeliveriesTotal,
		StripeEventsTotal,
		ActiveWebSocketClients,
		DBOpenConnections,
		DBIdleConnections,
		DBInUseConnections,
		GoroutineCount,
	)
}

// StartDBStatsCollector periodically samples sql.DBStats and runtime goroutine
// count into Prometheus gauges. Call in a goroutine; exits when ctx is done.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			DBOpenConnections.Set(float64(stats.OpenConnections))
			DBIdleConnections.Set(float64(stats.Idle))
			DBInUseConnections.Set(float64(stats.InUse))
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // Uses route pattern, not actual path (avoids cardinality explosion)
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
