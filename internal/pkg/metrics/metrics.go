package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "livetrack",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "livetrack",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	// Ingestion metrics
	SamplesAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "livetrack",
		Subsystem: "ingest",
		Name:      "samples_accepted_total",
		Help:      "Total position samples accepted by the pipeline",
	})

	SamplesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "livetrack",
		Subsystem: "ingest",
		Name:      "samples_rejected_total",
		Help:      "Total position samples rejected, by reason",
	}, []string{"reason"})

	SamplesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "livetrack",
		Subsystem: "ingest",
		Name:      "samples_failed_total",
		Help:      "Total validated samples whose durable write failed",
	})

	SamplesOutOfOrder = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "livetrack",
		Subsystem: "ingest",
		Name:      "samples_out_of_order_total",
		Help:      "Total accepted samples older than the held live state (history-only writes)",
	})

	StorageRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "livetrack",
		Subsystem: "ingest",
		Name:      "storage_retries_total",
		Help:      "Total retried durable writes after transient storage errors",
	})

	// Geofence metrics
	GeofenceTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "livetrack",
		Subsystem: "geofence",
		Name:      "transitions_total",
		Help:      "Total geofence transition events emitted, by kind",
	}, []string{"kind"})

	GeofencesRegistered = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "livetrack",
		Subsystem: "geofence",
		Name:      "registered",
		Help:      "Current number of registered geofences",
	})

	// Fan-out metrics
	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "livetrack",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	FanoutDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "livetrack",
		Subsystem: "fanout",
		Name:      "events_dropped_total",
		Help:      "Total events dropped for slow subscribers (drop-oldest policy)",
	})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "livetrack",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "livetrack",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "livetrack",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)

		return err
	}
}

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// UpdateDBPoolMetrics updates database pool gauges from pgx pool stats.
func UpdateDBPoolMetrics(stat interface{}) {
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}
