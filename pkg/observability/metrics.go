package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics exposed by the verification
// service and the driver it wraps.
type Metrics struct {
	// REST request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestErrors   *prometheus.CounterVec

	// Driver metrics
	PointsClassified   *prometheus.CounterVec // label: outcome ("stable","unstable","skipped")
	RegionsEnumerated  prometheus.Counter
	PointLatency       *prometheus.HistogramVec // label: domain ("interval","raf")
	HeapSize           prometheus.Histogram
	StableCount        *prometheus.GaugeVec // label: k
	RobustCount        *prometheus.GaugeVec // label: k
	RafAbsFallbackTotal prometheus.Counter

	// System metrics
	GoroutinesCount prometheus.Gauge
	MemoryUsage     prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "knave_requests_total",
				Help: "Total number of REST requests by method and status",
			},
			[]string{"method", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "knave_request_duration_seconds",
				Help:    "REST request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),
		RequestErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "knave_request_errors_total",
				Help: "Total number of REST request errors by method and error type",
			},
			[]string{"method", "error_type"},
		),

		PointsClassified: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "knave_points_classified_total",
				Help: "Total verdicts recorded by the verification driver, by outcome: one per (test point, k) for classified points, one per skipped point",
			},
			[]string{"outcome"},
		),
		RegionsEnumerated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "knave_regions_enumerated_total",
				Help: "Total abstract perturbation regions enumerated across all test points",
			},
		),
		PointLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "knave_point_classification_latency_seconds",
				Help:    "Time to enumerate, classify, and vote for one test point",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"domain"},
		),
		HeapSize: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "knave_heap_size",
				Help:    "Distribution of ordered-extraction heap sizes (training set size) seen per classification",
				Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000, 50000},
			},
		),
		StableCount: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "knave_stable_points",
				Help: "Number of stable test points in the most recent run, by k",
			},
			[]string{"k"},
		),
		RobustCount: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "knave_robust_points",
				Help: "Number of robust test points in the most recent run, by k",
			},
			[]string{"k"},
		),
		RafAbsFallbackTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "knave_raf_abs_interval_fallback_total",
				Help: "Times the RAF absolute-value operation fell back to an Interval hull because its sign-changing operand did not depend on exactly one linear noise symbol",
			},
		),

		GoroutinesCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "knave_goroutines",
				Help: "Current number of goroutines",
			},
		),
		MemoryUsage: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "knave_memory_bytes",
				Help: "Memory usage in bytes",
			},
		),
	}
}

// RecordRequest records a REST request with duration and status.
func (m *Metrics) RecordRequest(method, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, status).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordError records a REST request error.
func (m *Metrics) RecordError(method, errorType string) {
	m.RequestErrors.WithLabelValues(method, errorType).Inc()
}

// RecordPoint records one driver verdict: "stable" or "unstable" for
// one (test point, k) pair, or "skipped" once for a test point removed
// by the skip_ties filter of spec §4.I.
func (m *Metrics) RecordPoint(outcome string) {
	m.PointsClassified.WithLabelValues(outcome).Inc()
}

// RecordRegions adds to the total regions enumerated (spec §4.G).
func (m *Metrics) RecordRegions(count int) {
	m.RegionsEnumerated.Add(float64(count))
}

// RecordPointLatency records the classification latency for one test
// point in the given numeric domain ("interval" or "raf").
func (m *Metrics) RecordPointLatency(domain string, d time.Duration) {
	m.PointLatency.WithLabelValues(domain).Observe(d.Seconds())
}

// RecordHeapSize records the training-set size backing one
// classification's ordered-extraction heap.
func (m *Metrics) RecordHeapSize(size int) {
	m.HeapSize.Observe(float64(size))
}

// UpdateSummaryGauges publishes the stable/robust counts for one k
// after a run completes.
func (m *Metrics) UpdateSummaryGauges(k string, stable, robust int) {
	m.StableCount.WithLabelValues(k).Set(float64(stable))
	m.RobustCount.WithLabelValues(k).Set(float64(robust))
}

// RecordRafAbsFallback adds n uses of the conservative Interval-hull
// fallback in the RAF absolute-value operation (spec §4.B.2) to the
// counter. The driver calls this once per run with the delta of
// abstract.RafAbsFallbackCount() observed across that run, rather than
// once per Abs() call, since the fallback counter itself lives in
// pkg/abstract and must not import pkg/observability.
func (m *Metrics) RecordRafAbsFallback(n uint64) {
	m.RafAbsFallbackTotal.Add(float64(n))
}

// UpdateGoroutineCount updates the goroutine count gauge.
func (m *Metrics) UpdateGoroutineCount(count int) {
	m.GoroutinesCount.Set(float64(count))
}

// UpdateMemoryUsage updates the memory usage gauge.
func (m *Metrics) UpdateMemoryUsage(bytes uint64) {
	m.MemoryUsage.Set(float64(bytes))
}
