// Copyright (C) 2026 Alexis Argyris
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tracker

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for the operations counter.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

const (
	metricsNamespace = "litcritic"
	metricsSubsystem = "client"
)

// Metrics records per-operation duration and outcome. Implementations
// must be safe for concurrent use.
type Metrics interface {
	ObserveDuration(operation string, elapsed time.Duration)
	IncOutcome(operation, outcome string)
	Register() error
}

// -----------------------------------------------------------------------------
// NoOpMetrics
// -----------------------------------------------------------------------------

// NoOpMetrics records totals in memory without exporting anywhere. The
// default for interactive runs where nothing scrapes the process.
type NoOpMetrics struct {
	operationsTotal atomic.Int64
	errorsTotal     atomic.Int64
	lastElapsed     atomic.Int64 // milliseconds
}

// NewNoOpMetrics creates an in-memory recorder.
func NewNoOpMetrics() *NoOpMetrics {
	return &NoOpMetrics{}
}

func (m *NoOpMetrics) ObserveDuration(operation string, elapsed time.Duration) {
	m.lastElapsed.Store(elapsed.Milliseconds())
}

func (m *NoOpMetrics) IncOutcome(operation, outcome string) {
	m.operationsTotal.Add(1)
	if outcome == OutcomeError {
		m.errorsTotal.Add(1)
	}
}

func (m *NoOpMetrics) Register() error {
	return nil
}

// OperationsTotal returns the recorded operation count, for tests.
func (m *NoOpMetrics) OperationsTotal() int64 {
	return m.operationsTotal.Load()
}

// ErrorsTotal returns the recorded error count, for tests.
func (m *NoOpMetrics) ErrorsTotal() int64 {
	return m.errorsTotal.Load()
}

// LastElapsedMs returns the last observed duration in milliseconds.
func (m *NoOpMetrics) LastElapsedMs() int64 {
	return m.lastElapsed.Load()
}

// -----------------------------------------------------------------------------
// PrometheusMetrics
// -----------------------------------------------------------------------------

// PrometheusMetrics exports operation metrics through the Prometheus
// default registry. Call Register once at startup.
//
// Exported series:
//
//   - litcritic_client_operation_duration_seconds (labels: operation)
//   - litcritic_client_operations_total (labels: operation, outcome)
type PrometheusMetrics struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec

	mu         sync.Mutex
	registered bool
}

// NewPrometheusMetrics creates an exporting recorder.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "operation_duration_seconds",
				Help:      "Duration of tracked client operations in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 15.0, 60.0, 300.0},
			},
			[]string{"operation"},
		),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "operations_total",
				Help:      "Tracked client operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
	}
}

func (m *PrometheusMetrics) ObserveDuration(operation string, elapsed time.Duration) {
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *PrometheusMetrics) IncOutcome(operation, outcome string) {
	m.outcomes.WithLabelValues(operation, outcome).Inc()
}

// Register registers the collectors with the Prometheus default
// registry. Safe to call more than once.
func (m *PrometheusMetrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.registered {
		return nil
	}
	for _, c := range []prometheus.Collector{m.duration, m.outcomes} {
		if err := prometheus.Register(c); err != nil {
			return err
		}
	}
	m.registered = true
	return nil
}

// NewDefaultMetrics returns a Prometheus recorder when export is enabled
// and the in-memory recorder otherwise.
func NewDefaultMetrics(enablePrometheus bool) Metrics {
	if enablePrometheus {
		return NewPrometheusMetrics()
	}
	return NewNoOpMetrics()
}

var (
	_ Metrics = (*NoOpMetrics)(nil)
	_ Metrics = (*PrometheusMetrics)(nil)
)
