// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Simulation metrics
	SimulationRunsTotal *prometheus.CounterVec
	SimulationDuration  *prometheus.HistogramVec
	SeasonsSimulated    prometheus.Counter

	// Feed metrics
	FeedFetchesTotal   *prometheus.CounterVec
	FeedFetchLatency   *prometheus.HistogramVec
	ContractViolations *prometheus.CounterVec
	AsOfViolations     *prometheus.CounterVec
	ProviderCacheHits  *prometheus.CounterVec

	// Evaluation metrics
	ABRunsTotal  *prometheus.CounterVec
	SeedFailures prometheus.Counter
	SeedDuration prometheus.Histogram

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "fantasy_alpha_lab"
	}

	return &Metrics{
		// Simulation metrics
		SimulationRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "runs_total",
			Help:      "Total number of Monte Carlo runs by mode",
		}, []string{"mode"}),
		SimulationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "duration_seconds",
			Help:      "Monte Carlo run duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"mode"}),
		SeasonsSimulated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "seasons_simulated_total",
			Help:      "Total number of simulated seasons",
		}),

		// Feed metrics
		FeedFetchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feeds",
			Name:      "fetches_total",
			Help:      "Total number of feed fetches by feed and outcome",
		}, []string{"feed", "status"}),
		FeedFetchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "feeds",
			Name:      "fetch_latency_seconds",
			Help:      "Feed fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"feed"}),
		ContractViolations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feeds",
			Name:      "contract_violations_total",
			Help:      "Total number of payloads failing their canonical contract",
		}, []string{"feed"}),
		AsOfViolations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feeds",
			Name:      "as_of_violations_total",
			Help:      "Total number of payloads rejected by the as-of guard",
		}, []string{"feed"}),
		ProviderCacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "cache_hits_total",
			Help:      "Total number of provider cache hits by level",
		}, []string{"level"}),

		// Evaluation metrics
		ABRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "ab_runs_total",
			Help:      "Total number of A/B runs by decision status",
		}, []string{"status"}),
		SeedFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "seed_failures_total",
			Help:      "Total number of failed seed pairs",
		}),
		SeedDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "seed_duration_seconds",
			Help:      "Seed pair execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),

		// Pipeline metrics
		PipelineRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		}, []string{"phase", "status"}),
		PipelineDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline execution duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"phase"}),

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

		// Health metrics
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful A/B run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSimulationRun records one aggregate Monte Carlo run.
func RecordSimulationRun(mode string, seasons int, d time.Duration) {
	DefaultMetrics.SimulationRunsTotal.WithLabelValues(mode).Inc()
	DefaultMetrics.SimulationDuration.WithLabelValues(mode).Observe(d.Seconds())
	DefaultMetrics.SeasonsSimulated.Add(float64(seasons))
}

// RecordFeedFetch records a feed fetch outcome and latency.
func RecordFeedFetch(feed, status string, d time.Duration) {
	DefaultMetrics.FeedFetchesTotal.WithLabelValues(feed, status).Inc()
	DefaultMetrics.FeedFetchLatency.WithLabelValues(feed).Observe(d.Seconds())
}

// RecordContractViolation increments the contract violation counter.
func RecordContractViolation(feed string) {
	DefaultMetrics.ContractViolations.WithLabelValues(feed).Inc()
}

// RecordAsOfViolation increments the as-of violation counter.
func RecordAsOfViolation(feed string) {
	DefaultMetrics.AsOfViolations.WithLabelValues(feed).Inc()
}

// RecordCacheHit increments the provider cache hit counter.
func RecordCacheHit(level string) {
	DefaultMetrics.ProviderCacheHits.WithLabelValues(level).Inc()
}

// RecordABRun records a finished A/B run by decision status.
func RecordABRun(status string) {
	DefaultMetrics.ABRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.LastSuccessfulRun.SetToCurrentTime()
}

// RecordSeed records one seed pair.
func RecordSeed(ok bool, d time.Duration) {
	DefaultMetrics.SeedDuration.Observe(d.Seconds())
	if !ok {
		DefaultMetrics.SeedFailures.Inc()
	}
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordPipelineRun records a pipeline run.
func RecordPipelineRun(phase, status string, durationSeconds float64) {
	DefaultMetrics.PipelineRunsTotal.WithLabelValues(phase, status).Inc()
	DefaultMetrics.PipelineDuration.WithLabelValues(phase).Observe(durationSeconds)
}
