// SPDX-License-Identifier: MIT

// Package metrics exposes Prometheus instrumentation for pattern compilation
// and parsing. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Compilation results.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds the collectors for one registry.
type Metrics struct {
	Compilations    *prometheus.CounterVec
	CompileLatency  *prometheus.HistogramVec
	Records         *prometheus.CounterVec
	ParseErrors     *prometheus.CounterVec
	StackTraceLines *prometheus.CounterVec
	Filtered        *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Compilations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "logparse",
				Name:      "pattern_compilations_total",
				Help:      "Pattern compilations by kind and result.",
			},
			[]string{"kind", "result"},
		),
		CompileLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "logparse",
				Name:      "pattern_compile_seconds",
				Help:      "Time spent compiling a pattern.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"kind"},
		),
		Records: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "logparse",
				Name:      "records_total",
				Help:      "Records parsed by log mode.",
			},
			[]string{"mode"},
		),
		ParseErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "logparse",
				Name:      "parse_errors_total",
				Help:      "Lines rejected by the parser, by log mode.",
			},
			[]string{"mode"},
		),
		StackTraceLines: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "logparse",
				Name:      "stack_trace_lines_total",
				Help:      "Continuation lines folded into records, by log mode.",
			},
			[]string{"mode"},
		),
		Filtered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "logparse",
				Name:      "records_filtered_total",
				Help:      "Records dropped by the record filter, by log mode.",
			},
			[]string{"mode"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.Compilations,
			m.CompileLatency,
			m.Records,
			m.ParseErrors,
			m.StackTraceLines,
			m.Filtered,
		)
	}
	return m
}

// ObserveCompile records one compilation of the given kind.
func (m *Metrics) ObserveCompile(kind string, took time.Duration, err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.Compilations.WithLabelValues(kind, result).Inc()
	m.CompileLatency.WithLabelValues(kind).Observe(took.Seconds())
}

// RecordParsed counts a record and its absorbed stack-trace lines.
func (m *Metrics) RecordParsed(mode string, stackTraceLines int) {
	if m == nil {
		return
	}
	m.Records.WithLabelValues(mode).Inc()
	if stackTraceLines > 0 {
		m.StackTraceLines.WithLabelValues(mode).Add(float64(stackTraceLines))
	}
}

// ParseFailed counts a rejected line.
func (m *Metrics) ParseFailed(mode string) {
	if m == nil {
		return
	}
	m.ParseErrors.WithLabelValues(mode).Inc()
}

// RecordFiltered counts a record dropped by the filter.
func (m *Metrics) RecordFiltered(mode string) {
	if m == nil {
		return
	}
	m.Filtered.WithLabelValues(mode).Inc()
}
