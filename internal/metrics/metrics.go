package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Business metrics
	backtestsTotal       *prometheus.CounterVec
	backtestDuration     prometheus.Histogram
	optimizationsTotal   *prometheus.CounterVec
	optimizationDuration prometheus.Histogram
	combinationsTotal    *prometheus.CounterVec
	providerRequests     *prometheus.CounterVec
	jobsActive           *prometheus.GaugeVec
}

// NewRegistry creates a metrics registry with every instrument registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Count of HTTP requests served",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Server-side request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Requests currently being served",
			},
		),
		backtestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "helix_backtests_total",
				Help: "Backtest runs by outcome",
			},
			[]string{"status"},
		),
		backtestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "helix_backtest_duration_seconds",
				Help:    "Single backtest run duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.025, 0.1, 0.5, 1, 5},
			},
		),
		optimizationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "helix_optimizations_total",
				Help: "Grid optimizations by outcome",
			},
			[]string{"status"},
		),
		optimizationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "helix_optimization_duration_seconds",
				Help:    "Grid optimization duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
			},
		),
		combinationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "helix_optimizer_combinations_total",
				Help: "Parameter combinations evaluated, by outcome",
			},
			[]string{"status"},
		),
		providerRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "helix_provider_requests_total",
				Help: "Market data requests by provider and outcome",
			},
			[]string{"provider", "status"},
		),
		jobsActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "helix_jobs_active",
				Help: "Jobs currently pending or running",
			},
			[]string{"type"},
		),
	}

	reg.MustRegister(
		r.httpRequestsTotal,
		r.httpRequestDuration,
		r.httpRequestsInFlight,
		r.backtestsTotal,
		r.backtestDuration,
		r.optimizationsTotal,
		r.optimizationDuration,
		r.combinationsTotal,
		r.providerRequests,
		r.jobsActive,
	)

	return r
}

// RecordRequest records metrics for an HTTP request. Status codes are
// bucketed into classes (2xx, 4xx, ...) to bound label cardinality.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	r.httpRequestsTotal.WithLabelValues(method, path, statusClass(status)).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordBacktest records a backtest completion.
func (r *Registry) RecordBacktest(status string, duration float64) {
	r.backtestsTotal.WithLabelValues(status).Inc()
	r.backtestDuration.Observe(duration)
}

// RecordOptimization records a grid optimization completion.
func (r *Registry) RecordOptimization(status string, duration float64) {
	r.optimizationsTotal.WithLabelValues(status).Inc()
	r.optimizationDuration.Observe(duration)
}

// AddCombinations records evaluated and skipped combination counts
// from one optimization run.
func (r *Registry) AddCombinations(ok, skipped int) {
	r.combinationsTotal.WithLabelValues("ok").Add(float64(ok))
	r.combinationsTotal.WithLabelValues("skipped").Add(float64(skipped))
}

// RecordProviderRequest records a market data fetch.
func (r *Registry) RecordProviderRequest(provider, status string) {
	r.providerRequests.WithLabelValues(provider, status).Inc()
}

// SetJobsActive sets the number of active jobs of a type.
func (r *Registry) SetJobsActive(jobType string, count int) {
	r.jobsActive.WithLabelValues(jobType).Set(float64(count))
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
