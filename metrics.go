package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registration flow. Everything is
// registered on its own registry so test servers can instantiate freely.
type Metrics struct {
	registry *prometheus.Registry

	SessionsStarted    prometheus.Counter
	Extractions        *prometheus.CounterVec
	Submissions        *prometheus.CounterVec
	ExtractionDuration prometheus.Histogram
	SubmissionDuration prometheus.Histogram
}

// NewMetrics creates a Metrics instance with all flow metrics registered.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "guest_registry_sessions_started_total",
			Help: "Total number of wizard sessions created",
		}),
		Extractions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "guest_registry_extractions_total",
			Help: "Total number of ID extraction calls by outcome",
		}, []string{"outcome"}),
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "guest_registry_submissions_total",
			Help: "Total number of submissions by outcome",
		}, []string{"outcome"}),
		ExtractionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "guest_registry_extraction_duration_seconds",
			Help:    "Duration of ID extraction calls",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		SubmissionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "guest_registry_submission_duration_seconds",
			Help:    "Duration of sink submission calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

// Registry exposes the backing registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveExtraction records one extraction call.
func (m *Metrics) ObserveExtraction(start time.Time, outcome string) {
	m.Extractions.WithLabelValues(outcome).Inc()
	m.ExtractionDuration.Observe(time.Since(start).Seconds())
}

// ObserveSubmission records one submission attempt.
func (m *Metrics) ObserveSubmission(start time.Time, outcome string) {
	m.Submissions.WithLabelValues(outcome).Inc()
	m.SubmissionDuration.Observe(time.Since(start).Seconds())
}
