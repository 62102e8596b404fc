// Package metrics provides Prometheus instrumentation for the portfolio engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RebalanceRuns counts engine invocations, partitioned by outcome.
	RebalanceRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foliotrack_rebalance_runs_total",
		Help: "Total number of rebalancing analyses run",
	}, []string{"outcome"}) // "balanced", "plan", "error"

	// RebalanceDuration tracks engine pipeline latency.
	RebalanceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "foliotrack_rebalance_duration_seconds",
		Help:    "Rebalancing pipeline latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// TransactionsPlanned counts planned transactions by action.
	TransactionsPlanned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foliotrack_transactions_planned_total",
		Help: "Total buy/sell transactions planned",
	}, []string{"action"})

	// RebalanceExecutions counts plans applied to stored holdings.
	RebalanceExecutions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foliotrack_rebalance_executions_total",
		Help: "Rebalancing plans applied to stored holdings",
	})

	// PriceFetches counts live quote fetches from the upstream provider.
	PriceFetches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foliotrack_price_fetches_total",
		Help: "Live quote fetches from the price provider",
	})

	// PriceCacheHits counts quotes served from the TTL cache.
	PriceCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foliotrack_price_cache_hits_total",
		Help: "Quotes served from the price cache",
	})

	// CSVImports counts holdings CSV imports, partitioned by result.
	CSVImports = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foliotrack_csv_imports_total",
		Help: "Holdings CSV import attempts",
	}, []string{"result"}) // "ok", "invalid"

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "foliotrack_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foliotrack_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "foliotrack_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the route pattern for path label to avoid high cardinality.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
