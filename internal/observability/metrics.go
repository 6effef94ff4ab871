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
	// Data access
	FetchDuration *prometheus.HistogramVec
	FetchErrors   *prometheus.CounterVec

	// Analytics
	DashboardsComputed  *prometheus.CounterVec
	CalendarsComputed   prometheus.Counter
	StaleResultsDropped prometheus.Counter
	MalformedTrades     prometheus.Counter

	// Destructive actions
	OTPIssued       prometheus.Counter
	OTPVerification *prometheus.CounterVec
	TradesCleared   prometheus.Counter

	// Sessions
	DashboardSessions prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with the default registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "tradertrackr"
	}

	return &Metrics{
		FetchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "fetch_duration_seconds",
			Help:      "Trade data access latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source", "operation"}),
		FetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "fetch_errors_total",
			Help:      "Total number of failed trade data access calls",
		}, []string{"source", "operation"}),

		DashboardsComputed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "dashboards_computed_total",
			Help:      "Total number of dashboards computed by timeframe",
		}, []string{"timeframe"}),
		CalendarsComputed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "calendars_computed_total",
			Help:      "Total number of calendar month views computed",
		}),
		StaleResultsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "stale_results_dropped_total",
			Help:      "Dashboard results discarded because a newer request superseded them",
		}),
		MalformedTrades: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "malformed_trades_total",
			Help:      "Trades excluded from time-bucketed views for a missing entry date",
		}),

		OTPIssued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "otp",
			Name:      "issued_total",
			Help:      "Total number of one-time codes issued",
		}),
		OTPVerification: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "otp",
			Name:      "verifications_total",
			Help:      "One-time code verifications by result",
		}, []string{"result"}),
		TradesCleared: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trades",
			Name:      "cleared_total",
			Help:      "Total number of trades removed by bulk clear",
		}),

		DashboardSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "sessions_active",
			Help:      "Open websocket dashboard sessions",
		}),
	}
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics("")

// Handler returns the HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordFetch records the latency and outcome of one data access call.
func RecordFetch(source, operation string, seconds float64, err error) {
	DefaultMetrics.FetchDuration.WithLabelValues(source, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.FetchErrors.WithLabelValues(source, operation).Inc()
	}
}

// RecordDashboard increments the dashboards computed counter.
func RecordDashboard(timeframe string) {
	DefaultMetrics.DashboardsComputed.WithLabelValues(timeframe).Inc()
}

// RecordCalendar increments the calendars computed counter.
func RecordCalendar() {
	DefaultMetrics.CalendarsComputed.Inc()
}

// RecordStaleResult increments the stale results counter.
func RecordStaleResult() {
	DefaultMetrics.StaleResultsDropped.Inc()
}

// RecordMalformedTrades adds n excluded trades.
func RecordMalformedTrades(n int) {
	DefaultMetrics.MalformedTrades.Add(float64(n))
}

// RecordOTPIssued increments the issued codes counter.
func RecordOTPIssued() {
	DefaultMetrics.OTPIssued.Inc()
}

// RecordOTPVerification records a verification attempt.
func RecordOTPVerification(ok bool) {
	result := "rejected"
	if ok {
		result = "accepted"
	}
	DefaultMetrics.OTPVerification.WithLabelValues(result).Inc()
}

// RecordTradesCleared adds n bulk-deleted trades.
func RecordTradesCleared(n int64) {
	DefaultMetrics.TradesCleared.Add(float64(n))
}

// SessionOpened increments the active session gauge.
func SessionOpened() {
	DefaultMetrics.DashboardSessions.Inc()
}

// SessionClosed decrements the active session gauge.
func SessionClosed() {
	DefaultMetrics.DashboardSessions.Dec()
}
