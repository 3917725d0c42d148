// Package metrics exposes Prometheus instrumentation for downloads.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ydlcore"

// Download outcomes recorded in the status label.
const (
	StatusSuccess      = "success"
	StatusInvalid      = "invalid"
	StatusExtractError = "extract_error"
	StatusStreamError  = "stream_error"
)

// Metrics holds the collectors for the download pipeline.
type Metrics struct {
	downloadsTotal  *prometheus.CounterVec
	extractDuration *prometheus.HistogramVec
	relayedBytes    *prometheus.CounterVec
	inProgress      *prometheus.GaugeVec
	gatherer        prometheus.Gatherer
}

// New creates the collectors and registers them with reg. Passing nil uses
// the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		downloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "downloads_total",
				Help:      "Download requests by engine, media type and outcome.",
			},
			[]string{"engine", "type", "status"},
		),
		extractDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "extract_duration_seconds",
				Help:      "Time until media was ready to relay.",
				Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"engine", "type"},
		),
		relayedBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "relayed_bytes_total",
				Help:      "Bytes written to clients.",
			},
			[]string{"type"},
		),
		inProgress: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "downloads_in_progress",
				Help:      "Downloads currently being extracted or relayed.",
			},
			[]string{"engine"},
		),
	}

	reg.MustRegister(m.downloadsTotal, m.extractDuration, m.relayedBytes, m.inProgress)

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}
	return m
}

// Start marks a download as in progress and returns a func that ends it.
func (m *Metrics) Start(engine string) func() {
	g := m.inProgress.WithLabelValues(engine)
	g.Inc()
	return g.Dec
}

// ObserveExtract records how long extraction took.
func (m *Metrics) ObserveExtract(engine, mediaType string, d time.Duration) {
	m.extractDuration.WithLabelValues(engine, mediaType).Observe(d.Seconds())
}

// RecordDownload counts a finished request.
func (m *Metrics) RecordDownload(engine, mediaType, status string) {
	m.downloadsTotal.WithLabelValues(engine, mediaType, status).Inc()
}

// AddRelayedBytes adds n bytes sent to a client.
func (m *Metrics) AddRelayedBytes(mediaType string, n int64) {
	if n > 0 {
		m.relayedBytes.WithLabelValues(mediaType).Add(float64(n))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
