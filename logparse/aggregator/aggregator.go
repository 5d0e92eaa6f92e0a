// SPDX-License-Identifier: MIT

// Package aggregator accumulates statistics over the records of a parsing
// run.
package aggregator

import (
	"sort"
	"sync"

	"github.com/kolapsis/logparse/logparse/parser"
)

// Stats is a point-in-time view of an Aggregator.
type Stats struct {
	Records         int64 `json:"records"`
	ParseErrors     int64 `json:"parse_errors"`
	Filtered        int64 `json:"filtered"`
	StackTraceLines int64 `json:"stack_trace_lines"`
	Truncated       int64 `json:"truncated"`
	// LastOffset is the highest record offset observed.
	LastOffset int64 `json:"last_offset"`
	// Distinct counts the distinct values seen per tracked field.
	Distinct map[string]int `json:"distinct,omitempty"`
	// Sums totals the numeric values seen per tracked field.
	Sums map[string]float64 `json:"sums,omitempty"`
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithDistinct tracks the number of distinct values of each field path.
func WithDistinct(fields ...string) Option {
	return func(a *Aggregator) {
		for _, f := range fields {
			a.sets[f] = make(map[string]struct{})
		}
	}
}

// WithSum totals the numeric values of each field path. Values that are not
// numbers are skipped.
func WithSum(fields ...string) Option {
	return func(a *Aggregator) {
		for _, f := range fields {
			a.sums[f] = 0
		}
	}
}

// Aggregator is safe for concurrent use.
type Aggregator struct {
	mu sync.Mutex

	records         int64
	parseErrors     int64
	filtered        int64
	stackTraceLines int64
	truncated       int64
	lastOffset      int64

	sets map[string]map[string]struct{}
	sums map[string]float64
}

// New creates an Aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		sets: make(map[string]map[string]struct{}),
		sums: make(map[string]float64),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Observe accounts for a record that passed the filter.
func (a *Aggregator) Observe(rec *parser.Record) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.records++
	a.stackTraceLines += int64(rec.StackTraceLines)
	if rec.Truncated {
		a.truncated++
	}
	if rec.Offset > a.lastOffset {
		a.lastOffset = rec.Offset
	}

	for field, set := range a.sets {
		if v, ok := parser.GetFieldString(rec.Fields, field); ok {
			set[v] = struct{}{}
		}
	}
	for field := range a.sums {
		if v, ok := parser.GetFieldFloat(rec.Fields, field); ok {
			a.sums[field] += v
		}
	}
}

// ParseError counts a line the parser rejected.
func (a *Aggregator) ParseError() {
	a.mu.Lock()
	a.parseErrors++
	a.mu.Unlock()
}

// Filtered counts a record the filter dropped.
func (a *Aggregator) Filtered() {
	a.mu.Lock()
	a.filtered++
	a.mu.Unlock()
}

// Snapshot returns the current statistics and resets them. LastOffset is
// not reset.
func (a *Aggregator) Snapshot() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.stats()

	a.records = 0
	a.parseErrors = 0
	a.filtered = 0
	a.stackTraceLines = 0
	a.truncated = 0
	for field := range a.sets {
		a.sets[field] = make(map[string]struct{})
	}
	for field := range a.sums {
		a.sums[field] = 0
	}
	return s
}

// Peek returns the current statistics without resetting.
func (a *Aggregator) Peek() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats()
}

func (a *Aggregator) stats() Stats {
	s := Stats{
		Records:         a.records,
		ParseErrors:     a.parseErrors,
		Filtered:        a.filtered,
		StackTraceLines: a.stackTraceLines,
		Truncated:       a.truncated,
		LastOffset:      a.lastOffset,
	}
	if len(a.sets) > 0 {
		s.Distinct = make(map[string]int, len(a.sets))
		for field, set := range a.sets {
			s.Distinct[field] = len(set)
		}
	}
	if len(a.sums) > 0 {
		s.Sums = make(map[string]float64, len(a.sums))
		for field, v := range a.sums {
			s.Sums[field] = v
		}
	}
	return s
}

// TrackedFields returns the field paths with distinct or sum tracking.
func (a *Aggregator) TrackedFields() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	seen := make(map[string]struct{}, len(a.sets)+len(a.sums))
	for f := range a.sets {
		seen[f] = struct{}{}
	}
	for f := range a.sums {
		seen[f] = struct{}{}
	}

	fields := make([]string, 0, len(seen))
	for f := range seen {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}
