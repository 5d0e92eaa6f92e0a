// SPDX-License-Identifier: MIT

package logparse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kolapsis/logparse/logparse/aggregator"
	"github.com/kolapsis/logparse/logparse/matcher"
	"github.com/kolapsis/logparse/logparse/metrics"
	"github.com/kolapsis/logparse/logparse/parser"
)

// Sink receives the records a pipeline keeps.
type Sink interface {
	Write(rec *parser.Record) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(rec *parser.Record) error

// Write implements Sink.
func (f SinkFunc) Write(rec *parser.Record) error { return f(rec) }

// JSONSink writes one JSON object per record.
type JSONSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

type jsonRecord struct {
	ID        string         `json:"id"`
	Offset    int64          `json:"offset"`
	Fields    map[string]any `json:"fields"`
	Truncated bool           `json:"truncated,omitempty"`
}

// NewJSONSink creates a sink writing JSON lines to w.
func NewJSONSink(w io.Writer) *JSONSink {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONSink{enc: enc}
}

// Write implements Sink.
func (s *JSONSink) Write(rec *parser.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(jsonRecord{
		ID:        rec.ID,
		Offset:    rec.Offset,
		Fields:    rec.Fields,
		Truncated: rec.Truncated,
	})
}

// PipelineOptions configures a Pipeline.
type PipelineOptions struct {
	// Parser is the record source. Required.
	Parser parser.Parser
	// Mode labels metrics; usually the factory's log mode.
	Mode string
	// Matcher drops records that do not match. Nil keeps every record.
	Matcher *matcher.Matcher
	// Aggregator collects run statistics. Nil creates one.
	Aggregator *aggregator.Aggregator
	Metrics    *metrics.Metrics
	// Sink receives kept records. Nil discards them.
	Sink   Sink
	Logger *slog.Logger
	// Verbosity: 0=errors, 1=parse failures, 2=every record.
	Verbosity int
}

// Pipeline drives a parser to the end of its stream, filtering and
// accounting for every record.
type Pipeline struct {
	parser     parser.Parser
	mode       string
	matcher    *matcher.Matcher
	aggregator *aggregator.Aggregator
	metrics    *metrics.Metrics
	sink       Sink
	logger     *slog.Logger
	verbosity  int

	running atomic.Bool
	started atomic.Int64
}

// NewPipeline creates a Pipeline.
func NewPipeline(opts PipelineOptions) (*Pipeline, error) {
	if opts.Parser == nil {
		return nil, fmt.Errorf("pipeline needs a parser")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	match := opts.Matcher
	if match == nil {
		match, _ = matcher.New()
	}

	agg := opts.Aggregator
	if agg == nil {
		agg = aggregator.New()
	}

	sink := opts.Sink
	if sink == nil {
		sink = SinkFunc(func(*parser.Record) error { return nil })
	}

	return &Pipeline{
		parser:     opts.Parser,
		mode:       opts.Mode,
		matcher:    match,
		aggregator: agg,
		metrics:    opts.Metrics,
		sink:       sink,
		logger:     logger,
		verbosity:  opts.Verbosity,
	}, nil
}

// Run parses records until the stream ends or ctx is cancelled. Parse errors
// are logged and counted; read and sink errors stop the run. Cancellation is
// not an error.
func (p *Pipeline) Run(ctx context.Context) (aggregator.Stats, error) {
	if !p.running.CompareAndSwap(false, true) {
		return aggregator.Stats{}, fmt.Errorf("pipeline already running")
	}
	defer p.running.Store(false)
	p.started.Store(time.Now().UnixNano())

	for {
		if ctx.Err() != nil {
			p.logger.Info("pipeline cancelled", "offset", p.parser.Offset())
			return p.aggregator.Peek(), nil
		}

		rec, err := p.parser.Parse()
		if errors.Is(err, io.EOF) {
			return p.aggregator.Peek(), nil
		}

		var parseErr *parser.ParseError
		if errors.As(err, &parseErr) {
			p.aggregator.ParseError()
			p.metrics.ParseFailed(p.mode)
			if p.verbosity >= 1 {
				p.logger.Debug("failed to parse line", "id", parseErr.ID, "reason", parseErr.Reason, "line", parseErr.Line)
			}
			continue
		}
		if err != nil {
			return p.aggregator.Peek(), fmt.Errorf("reading at offset %d: %w", p.parser.Offset(), err)
		}

		if err := p.process(rec); err != nil {
			return p.aggregator.Peek(), err
		}
	}
}

// process filters, accounts for and emits a single record.
func (p *Pipeline) process(rec *parser.Record) error {
	if p.verbosity >= 2 {
		p.logger.Debug("parsed record", "id", rec.ID, "fields", len(rec.Fields), "stack_trace_lines", rec.StackTraceLines)
	}

	if !p.matcher.Match(rec) {
		p.aggregator.Filtered()
		p.metrics.RecordFiltered(p.mode)
		return nil
	}

	p.aggregator.Observe(rec)
	p.metrics.RecordParsed(p.mode, rec.StackTraceLines)

	if err := p.sink.Write(rec); err != nil {
		return fmt.Errorf("writing record %s: %w", rec.ID, err)
	}
	return nil
}

// Aggregator returns the statistics collector.
func (p *Pipeline) Aggregator() *aggregator.Aggregator {
	return p.aggregator
}

// Offset returns the position from which parsing would resume.
func (p *Pipeline) Offset() int64 {
	return p.parser.Offset()
}

// Elapsed returns the time since Run started.
func (p *Pipeline) Elapsed() time.Duration {
	started := p.started.Load()
	if started == 0 {
		return 0
	}
	return time.Since(time.Unix(0, started))
}
