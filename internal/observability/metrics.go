package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flyte_http_requests_total",
			Help: "Total number of loopback API requests.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flyte_http_request_duration_seconds",
			Help:    "Loopback API request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	restRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flyte_rest_requests_total",
			Help: "Total number of backend REST calls.",
		},
		[]string{"method", "path", "status"},
	)
	restRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flyte_rest_request_duration_seconds",
			Help:    "Backend REST call latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)
	syncRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flyte_sync_runs_total",
			Help: "Total number of reconciler runs.",
		},
		[]string{"mode", "outcome"},
	)
	syncRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flyte_sync_rows_total",
			Help: "Rows written or removed by reconciler runs.",
		},
		[]string{"kind"},
	)
	realtimeEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flyte_realtime_events_total",
			Help: "Total number of realtime channel events.",
		},
		[]string{"event"},
	)
	realtimeSubscribed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "flyte_realtime_subscribed",
			Help: "Whether the realtime channel is subscribed to a room.",
		},
	)
	uiStreamsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flyte_ui_streams_active",
			Help: "Number of active UI websocket streams.",
		},
		[]string{"stream"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		restRequestsTotal,
		restRequestDuration,
		syncRunsTotal,
		syncRowsTotal,
		realtimeEventsTotal,
		realtimeSubscribed,
		uiStreamsActive,
	)
}

// HTTPMetricsMiddleware records loopback API request counts and latency.
func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// ObserveRESTRequest records a backend REST call. Status 0 means the
// request never produced a response.
func ObserveRESTRequest(method, path string, status int, elapsed time.Duration) {
	restRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	restRequestDuration.WithLabelValues(path).Observe(elapsed.Seconds())
}

// IncSyncRun records a reconciler run by mode (merge, full_replace) and
// outcome (ok, network, parse, unauthorized, constraint).
func IncSyncRun(mode, outcome string) {
	syncRunsTotal.WithLabelValues(mode, outcome).Inc()
}

// AddSyncRows records rows touched by a reconciler run.
func AddSyncRows(kind string, n int) {
	if n > 0 {
		syncRowsTotal.WithLabelValues(kind).Add(float64(n))
	}
}

// IncRealtimeEvent records a realtime channel event (connect, subscribe,
// message, dropped_frame, reconnect, disconnect, send).
func IncRealtimeEvent(event string) {
	realtimeEventsTotal.WithLabelValues(event).Inc()
}

// SetRealtimeSubscribed flips the subscribed gauge.
func SetRealtimeSubscribed(subscribed bool) {
	if subscribed {
		realtimeSubscribed.Set(1)
		return
	}
	realtimeSubscribed.Set(0)
}

// IncUIStream increments the active UI stream gauge.
func IncUIStream(stream string) { uiStreamsActive.WithLabelValues(stream).Inc() }

// DecUIStream decrements the active UI stream gauge.
func DecUIStream(stream string) { uiStreamsActive.WithLabelValues(stream).Dec() }
