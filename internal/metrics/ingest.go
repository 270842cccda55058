// Package metrics provides Prometheus metrics for the ingestion pipeline.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/makeasinger/samples/internal/model"
)

// IngestMetrics contains all Prometheus metrics related to ingestion.
// A nil *IngestMetrics is valid and records nothing.
type IngestMetrics struct {
	FilesTotal    *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	Inflight      prometheus.Gauge
	BatchesTotal  prometheus.Counter
}

// NewIngestMetrics creates the metrics and registers them with registry.
func NewIngestMetrics(registry prometheus.Registerer) (*IngestMetrics, error) {
	m := &IngestMetrics{
		FilesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "samples_ingest_files_total",
				Help: "Files processed by the ingestion pipeline partitioned by outcome and error kind.",
			},
			[]string{"outcome", "kind"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "samples_ingest_stage_seconds",
				Help:    "Time spent in each pipeline stage",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
			},
			[]string{"stage"},
		),
		Inflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "samples_ingest_inflight",
				Help: "Files currently being processed",
			},
		),
		BatchesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "samples_ingest_batches_total",
				Help: "Batches started",
			},
		),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register ingest metrics: %w", err)
	}
	return m, nil
}

// RecordResult counts one finished file
func (m *IngestMetrics) RecordResult(r model.IngestionResult) {
	if m == nil {
		return
	}
	if r.Success {
		m.FilesTotal.WithLabelValues("success", "").Inc()
		return
	}
	m.FilesTotal.WithLabelValues("failure", string(r.Kind())).Inc()
}

// RecordSoftFailure counts a non-fatal problem, such as peak extraction falling back to silence
func (m *IngestMetrics) RecordSoftFailure(kind model.ErrorKind) {
	if m == nil {
		return
	}
	m.FilesTotal.WithLabelValues("degraded", string(kind)).Inc()
}

// ObserveStage records how long a stage took
func (m *IngestMetrics) ObserveStage(stage model.Stage, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(string(stage)).Observe(d.Seconds())
}

// FileStarted and FileFinished track the inflight gauge
func (m *IngestMetrics) FileStarted() {
	if m == nil {
		return
	}
	m.Inflight.Inc()
}

func (m *IngestMetrics) FileFinished() {
	if m == nil {
		return
	}
	m.Inflight.Dec()
}

func (m *IngestMetrics) BatchStarted() {
	if m == nil {
		return
	}
	m.BatchesTotal.Inc()
}

// Describe implements prometheus.Collector
func (m *IngestMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.FilesTotal.Describe(ch)
	m.StageDuration.Describe(ch)
	ch <- m.Inflight.Desc()
	ch <- m.BatchesTotal.Desc()
}

// Collect implements prometheus.Collector
func (m *IngestMetrics) Collect(ch chan<- prometheus.Metric) {
	m.FilesTotal.Collect(ch)
	m.StageDuration.Collect(ch)
	m.Inflight.Collect(ch)
	m.BatchesTotal.Collect(ch)
}
