// Package metrics provides Prometheus instrumentation for the copy
// pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

const namespace = "polycopy"

// Metrics holds every collector. Use New with a dedicated registry in
// tests; Default registers with the global registry.
type Metrics struct {
	gatherer prometheus.Gatherer

	// Outcomes counts processed origin trades by outcome kind.
	Outcomes *prometheus.CounterVec
	// ExecutedDollars sums the stake of executed copies.
	ExecutedDollars prometheus.Counter
	// IndexSize is the number of instruments in the current index.
	IndexSize prometheus.Gauge
	// IndexBuiltAt is the unix time of the last index rebuild.
	IndexBuiltAt prometheus.Gauge
	// FeedErrors counts failed origin fetches by address.
	FeedErrors *prometheus.CounterVec
	// Drawdown is the current drawdown from peak bankroll, 0..1.
	Drawdown prometheus.Gauge
	// Bankroll is the last observed destination balance.
	Bankroll prometheus.Gauge

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers the collectors with reg.
func New(reg *prometheus.Registry) *Metrics {
	m := newWith(promauto.With(reg))
	m.gatherer = reg
	return m
}

// Default registers the collectors with the global registry. Call it once.
func Default() *Metrics {
	m := newWith(promauto.With(prometheus.DefaultRegisterer))
	m.gatherer = prometheus.DefaultGatherer
	return m
}

func newWith(f promauto.Factory) *Metrics {
	return &Metrics{
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes_total",
			Help:      "Processed origin trades by outcome",
		}, []string{"kind"}),
		ExecutedDollars: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executed_dollars_total",
			Help:      "Dollars staked on executed copies",
		}),
		IndexSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_instruments",
			Help:      "Destination instruments in the match index",
		}),
		IndexBuiltAt: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_built_timestamp_seconds",
			Help:      "Unix time of the last index rebuild",
		}),
		FeedErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_errors_total",
			Help:      "Failed origin activity fetches",
		}, []string{"address"}),
		Drawdown: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "drawdown_ratio",
			Help:      "Current drawdown from peak bankroll",
		}),
		Bankroll: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bankroll_dollars",
			Help:      "Last observed destination balance",
		}),
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Ops server requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Ops server request duration",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"method", "path"}),
	}
}

// RecordOutcome counts one outcome; executed outcomes add amount to the
// executed dollars.
func (m *Metrics) RecordOutcome(kind domain.OutcomeKind, amount float64) {
	m.Outcomes.WithLabelValues(string(kind)).Inc()
	if kind == domain.OutcomeExecuted && amount > 0 {
		m.ExecutedDollars.Add(amount)
	}
}

// RecordIndex records a rebuilt index.
func (m *Metrics) RecordIndex(size int, builtAt time.Time) {
	m.IndexSize.Set(float64(size))
	m.IndexBuiltAt.Set(float64(builtAt.Unix()))
}

// RecordFeedError counts a failed fetch for address.
func (m *Metrics) RecordFeedError(address string) {
	m.FeedErrors.WithLabelValues(address).Inc()
}

// RecordBankroll records a balance observation and the resulting drawdown.
func (m *Metrics) RecordBankroll(balance, drawdown float64) {
	m.Bankroll.Set(balance)
	m.Drawdown.Set(drawdown)
}

// Handler serves the registry this Metrics was created with.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records request counts and durations. pathOf maps a request
// to a low-cardinality label, usually the route pattern.
func (m *Metrics) Middleware(pathOf func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			path := r.URL.Path
			if pathOf != nil {
				if p := pathOf(r); p != "" {
					path = p
				}
			}
			m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
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
