package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weap_prep"

// Metrics holds the Prometheus counters, histograms, and gauges for a
// preparation run.
type Metrics struct {
	PipelineRunning prometheus.Gauge

	// Stage metrics, labelled by stage kind (hydro, meteo, lulc, urban_demand, future_demand).
	StageDuration    *prometheus.HistogramVec
	StageFailures    *prometheus.CounterVec
	DatasetsExported *prometheus.CounterVec // labels: sink={csv,kafka}
	SkippedRows      *prometheus.CounterVec // labels: kind
	FilledCells      *prometheus.CounterVec // labels: kind

	// Location lookup metrics.
	LookupRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	LookupCache       *prometheus.CounterVec // labels: result={hit,miss}
	LookupAPIDuration prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a preparation run is active, 0 otherwise.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of a dataset preparation stage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"kind"}),
		StageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "Dataset preparation stages that returned an error.",
		}, []string{"kind"}),
		DatasetsExported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datasets_exported_total",
			Help:      "Datasets written, by sink.",
		}, []string{"sink"}),
		SkippedRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_rows_total",
			Help:      "Input rows dropped for unparseable dates.",
		}, []string{"kind"}),
		FilledCells: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filled_cells_total",
			Help:      "Ward table cells filled with zero during merges.",
		}, []string{"kind"}),
		LookupRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookup_requests_total",
			Help:      "Amenity location lookups by outcome.",
		}, []string{"outcome"}),
		LookupCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookup_cache_total",
			Help:      "Amenity lookup cache results.",
		}, []string{"result"}),
		LookupAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lookup_api_duration_seconds",
			Help:      "Overpass API request duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}

	prometheus.MustRegister(
		m.PipelineRunning,
		m.StageDuration,
		m.StageFailures,
		m.DatasetsExported,
		m.SkippedRows,
		m.FilledCells,
		m.LookupRequests,
		m.LookupCache,
		m.LookupAPIDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		PipelineRunning:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "pipeline_running"}),
		StageDuration:     prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: "stage_duration_seconds"}, []string{"kind"}),
		StageFailures:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "stage_failures_total"}, []string{"kind"}),
		DatasetsExported:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "datasets_exported_total"}, []string{"sink"}),
		SkippedRows:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "skipped_rows_total"}, []string{"kind"}),
		FilledCells:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "filled_cells_total"}, []string{"kind"}),
		LookupRequests:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "lookup_requests_total"}, []string{"outcome"}),
		LookupCache:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "lookup_cache_total"}, []string{"result"}),
		LookupAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "lookup_api_duration_seconds"}),
	}
}
