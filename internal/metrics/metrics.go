package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds the Prometheus collectors of an analysis process.
type Metrics struct {
	RunsTotal        prometheus.Counter
	StageDuration    *prometheus.HistogramVec
	DetectorResults  *prometheus.GaugeVec
	DetectorFailures *prometheus.CounterVec
	RecordsLoaded    *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors on the default registry.
// Registration happens once per process; later calls return the same set.
//
// Metrics:
//   - pulse_runs_total - completed analysis runs
//   - pulse_stage_duration_seconds{stage} - duration of each analysis stage
//   - pulse_detector_results{detector} - results of the latest run
//   - pulse_detector_failures_total{detector} - detectors that failed
//   - pulse_records_loaded_total{kind} - email threads and meetings loaded
//   - pulse_http_requests_total{route,code} - API requests served
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			RunsTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "pulse_runs_total",
				Help: "Total number of completed analysis runs",
			}),
			StageDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "pulse_stage_duration_seconds",
					Help:    "Duration of analysis stages",
					Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
				},
				[]string{"stage"},
			),
			DetectorResults: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "pulse_detector_results",
					Help: "Number of results produced by each detector in the latest run",
				},
				[]string{"detector"},
			),
			DetectorFailures: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pulse_detector_failures_total",
					Help: "Total number of failed detector runs",
				},
				[]string{"detector"},
			),
			RecordsLoaded: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pulse_records_loaded_total",
					Help: "Total number of input records loaded",
				},
				[]string{"kind"},
			),
			HTTPRequests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pulse_http_requests_total",
					Help: "Total number of API requests",
				},
				[]string{"route", "code"},
			),
		}
	})
	return globalMetrics
}

// ObserveStage records a stage duration. Safe on a nil receiver.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// SetResults publishes the result count of a detector.
func (m *Metrics) SetResults(detector string, n int) {
	if m == nil {
		return
	}
	m.DetectorResults.WithLabelValues(detector).Set(float64(n))
}

// IncFailure counts a failed detector run.
func (m *Metrics) IncFailure(detector string) {
	if m == nil {
		return
	}
	m.DetectorFailures.WithLabelValues(detector).Inc()
}

// AddRecords counts loaded input records of a kind.
func (m *Metrics) AddRecords(kind string, n int) {
	if m == nil {
		return
	}
	m.RecordsLoaded.WithLabelValues(kind).Add(float64(n))
}

// ObserveRequest counts a served API request.
func (m *Metrics) ObserveRequest(route string, code int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
