// Package metrics records the figures of one reconciliation run and writes
// them for the node exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for a reconciliation run.
// Each run owns its registry so repeated runs in one process do not collide.
type Metrics struct {
	registry *prometheus.Registry

	FilesProcessed   prometheus.Counter
	FilesSkipped     *prometheus.CounterVec
	RecordsExtracted *prometheus.CounterVec
	RecordsSkipped   *prometheus.CounterVec
	ClassifierHits   *prometheus.CounterVec
	Changed          *prometheus.GaugeVec
	Accumulated      prometheus.Gauge
	Unexplained      prometheus.Gauge
	ReferenceSize    *prometheus.GaugeVec
	FetchDuration    *prometheus.HistogramVec
	RunInfo          *prometheus.GaugeVec
}

// New creates a Metrics instance with every run metric registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		FilesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "catastro_municipalities_processed_total",
			Help: "Municipality pairs extracted and compared",
		}),
		FilesSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catastro_files_skipped_total",
			Help: "Files not compared, by reason",
		}, []string{"reason"}),
		RecordsExtracted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catastro_records_extracted_total",
			Help: "Predio records extracted, by period",
		}, []string{"vigencia"}),
		RecordsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catastro_records_skipped_total",
			Help: "Predio records excluded at extraction, by period and reason",
		}, []string{"vigencia", "reason"}),
		ClassifierHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catastro_classifier_hits_total",
			Help: "Records matched by a completeness classifier",
		}, []string{"vigencia", "classifier"}),
		Changed: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "catastro_changed_records",
			Help: "Identifiers changed between periods, by municipality",
		}, []string{"municipio"}),
		Accumulated: factory.NewGauge(prometheus.GaugeOpts{
			Name: "catastro_accumulated_changes",
			Help: "Size of the cross-municipality change set",
		}),
		Unexplained: factory.NewGauge(prometheus.GaugeOpts{
			Name: "catastro_unexplained_changes",
			Help: "Changed identifiers absent from every reference source",
		}),
		ReferenceSize: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "catastro_reference_identifiers",
			Help: "Identifiers returned by each reference source",
		}, []string{"reference"}),
		FetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "catastro_reference_fetch_duration_seconds",
			Help:    "Duration of reference source fetches",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"reference"}),
		RunInfo: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "catastro_run_info",
			Help: "Run identifier and compared periods",
		}, []string{"run_id", "vigencia_a", "vigencia_b"}),
	}
}

// Registry exposes the run registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveFetch records the duration of one reference fetch.
// Call with time.Now() at the start of the fetch.
func (m *Metrics) ObserveFetch(reference string, start time.Time) {
	m.FetchDuration.WithLabelValues(reference).Observe(time.Since(start).Seconds())
}

// WriteTextfile writes every metric to path in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
