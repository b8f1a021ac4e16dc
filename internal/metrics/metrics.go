// Package metrics exposes Prometheus instrumentation for batch downloads.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"ytdlpanel/internal/models"
)

const namespace = "ytdlpanel"

type Metrics struct {
	itemsTotal      *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	inFlight        prometheus.Gauge
	batchesTotal    prometheus.Counter
	durationSeconds *prometheus.HistogramVec
	fileSizeBytes   prometheus.Histogram
}

// New creates the collectors and registers them with reg.
// Registration panics on duplicate names.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		itemsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "items_total",
				Help:      "Batch items finished, by terminal status.",
			},
			[]string{"status"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Failed batch items, by error category.",
			},
			[]string{"category"},
		),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "items_in_flight",
			Help:      "Extraction calls currently running.",
		}),
		batchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Batches started.",
		}),
		durationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "item_duration_seconds",
				Help:      "Wall-clock time per batch item.",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 900, 1800},
			},
			[]string{"status"},
		),
		fileSizeBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_size_bytes",
			Help:      "Size of downloaded files.",
			// 1MB .. 4GB
			Buckets: prometheus.ExponentialBuckets(1<<20, 4, 12),
		}),
	}

	reg.MustRegister(
		m.itemsTotal,
		m.errorsTotal,
		m.inFlight,
		m.batchesTotal,
		m.durationSeconds,
		m.fileSizeBytes,
	)
	return m
}

func (m *Metrics) BatchStarted() {
	if m == nil {
		return
	}
	m.batchesTotal.Inc()
}

func (m *Metrics) ItemStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Metrics) ItemStopped() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}

// ItemFinished records the terminal outcome of one item, including skipped and invalid ones.
func (m *Metrics) ItemFinished(r models.DownloadResult) {
	if m == nil {
		return
	}
	status := string(r.Status)
	m.itemsTotal.WithLabelValues(status).Inc()
	if r.Status == models.StatusSkipped {
		return
	}
	m.durationSeconds.WithLabelValues(status).Observe(r.Duration)
	if r.ErrorCategory != "" {
		m.errorsTotal.WithLabelValues(r.ErrorCategory).Inc()
	}
	for _, f := range r.Files {
		m.fileSizeBytes.Observe(float64(f.SizeBytes))
	}
}
