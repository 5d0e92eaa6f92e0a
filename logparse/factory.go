// SPDX-License-Identifier: MIT

// Package logparse builds parsers that turn raw log lines into records for a
// configured log format.
package logparse

import (
	"io"
	"log/slog"
	"regexp"
	"time"

	"github.com/kolapsis/logparse/logparse/cache"
	"github.com/kolapsis/logparse/logparse/config"
	"github.com/kolapsis/logparse/logparse/grok"
	"github.com/kolapsis/logparse/logparse/metrics"
	"github.com/kolapsis/logparse/logparse/parser"
	"github.com/kolapsis/logparse/logparse/stream"
	"github.com/kolapsis/logparse/logparse/translate"
)

// Fixed expressions for the modes that need no translation.
const (
	CommonLogExpression   = "%{COMMONAPACHELOG}"
	CombinedLogExpression = "%{COMBINEDAPACHELOG}"
	ErrorLogExpression    = "%{APACHEERRORLOG}"
)

// Pattern kinds, as reported to logs and metrics.
const (
	KindGrok  = "grok"
	KindRegex = "regex"
)

// Option configures a Factory.
type Option func(*Factory)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Factory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithProvider sets the source of pattern dictionaries.
func WithProvider(provider grok.Provider) Option {
	return func(f *Factory) {
		f.provider = provider
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Factory) {
		f.metrics = m
	}
}

// Factory builds parsers for one log mode. It is safe for concurrent use;
// compiled patterns are shared by every parser it builds.
type Factory struct {
	mode   config.LogMode
	cfg    *config.FactoryConfig
	budget int

	logger   *slog.Logger
	metrics  *metrics.Metrics
	provider grok.Provider

	dictionaries []string
	inline       string

	patterns *cache.Cache[*grok.Pattern]
	regexes  *cache.Cache[*regexp.Regexp]
}

// NewFactory creates a factory for mode. The configuration and error policy
// are validated here so that BuildParser only fails on pattern problems.
func NewFactory(mode config.LogMode, cfg *config.FactoryConfig, opts ...Option) (*Factory, error) {
	if !mode.Valid() {
		return nil, &config.InternalError{What: mode.String()}
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	budget, err := cfg.LineBudget()
	if err != nil {
		return nil, err
	}

	f := &Factory{
		mode:   mode,
		cfg:    cfg,
		budget: budget,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(f)
	}

	switch mode {
	case config.ApacheErrorLogFormat:
		f.dictionaries = []string{grok.ApacheErrorLogDictionary}
	case config.Log4j:
		f.dictionaries = []string{grok.Log4jDictionary}
	}
	// Inline definitions extend every named-pattern mode and may override
	// dictionary entries such as LOGLEVEL.
	if mode != config.Regex {
		f.inline = cfg.GrokPatternDefinition()
	}

	compiler := grok.NewCompiler(f.provider)
	f.patterns = cache.New[*grok.Pattern](func(expression string) (*grok.Pattern, error) {
		return compiler.Compile(expression, f.dictionaries, f.inline)
	}, cache.WithCompileHook(f.compileHook(KindGrok)))
	f.regexes = cache.New[*regexp.Regexp](regexp.Compile, cache.WithCompileHook(f.compileHook(KindRegex)))

	f.logger.Debug("parser factory ready",
		"mode", mode,
		"on_parse_error", cfg.OnParseError(),
		"line_budget", budget,
	)
	return f, nil
}

func (f *Factory) compileHook(kind string) cache.CompileHook {
	return func(key string, took time.Duration, err error) {
		f.metrics.ObserveCompile(kind, took, err)
		if err != nil {
			f.logger.Warn("pattern compilation failed", "kind", kind, "pattern", key, "error", err)
			return
		}
		f.logger.Debug("compiled pattern", "kind", kind, "pattern", key, "took", took)
	}
}

// Mode returns the log mode the factory builds parsers for.
func (f *Factory) Mode() config.LogMode {
	return f.mode
}

// Config returns the configuration snapshot.
func (f *Factory) Config() *config.FactoryConfig {
	return f.cfg
}

// LineBudget returns the resolved error policy passed to named-pattern
// parsers.
func (f *Factory) LineBudget() int {
	return f.budget
}

// Expression returns the pattern source compiled for the factory's mode: a
// named-pattern expression, or the regular expression in REGEX mode.
func (f *Factory) Expression() (string, error) {
	switch f.mode {
	case config.CommonLogFormat:
		return CommonLogExpression, nil
	case config.CombinedLogFormat:
		return CombinedLogExpression, nil
	case config.ApacheCustomLogFormat:
		return translate.Apache(f.cfg.ApacheCustomLogFormat())
	case config.ApacheErrorLogFormat:
		return ErrorLogExpression, nil
	case config.Regex:
		return f.cfg.Regex(), nil
	case config.Grok:
		return f.cfg.GrokPattern(), nil
	case config.Log4j:
		return translate.Log4j(f.cfg.Log4jFormat())
	default:
		return "", &config.InternalError{What: f.mode.String()}
	}
}

// NewReader wraps r in a line reader honouring the configured maximum line
// length.
func (f *Factory) NewReader(r io.Reader) *stream.Reader {
	return stream.New(r, stream.WithMaxLineLength(f.cfg.MaxLineLength()))
}

// BuildParser creates a parser reading from in, which must be at position 0.
// offset is the absolute position of in's first byte and id prefixes the
// identifiers of the records produced. Every failure is returned as a
// *ParserConstructionError.
func (f *Factory) BuildParser(id string, in parser.LineReader, offset int64) (parser.Parser, error) {
	p, err := f.build(id, in, offset)
	if err != nil {
		return nil, &ParserConstructionError{ID: id, Offset: offset, Err: err}
	}
	return p, nil
}

// Open builds a parser over r.
func (f *Factory) Open(id string, r io.Reader, offset int64) (parser.Parser, error) {
	return f.BuildParser(id, f.NewReader(r), offset)
}

func (f *Factory) build(id string, in parser.LineReader, offset int64) (parser.Parser, error) {
	if pos := in.Pos(); pos != 0 {
		return nil, &PreconditionError{Pos: pos}
	}

	opts := parser.Options{
		ID:                 id,
		StartOffset:        offset,
		RetainOriginalText: f.cfg.RetainOriginalText(),
	}

	expression, err := f.Expression()
	if err != nil {
		return nil, err
	}

	if f.mode == config.Regex {
		re, err := f.regexes.Get(expression)
		if err != nil {
			return nil, err
		}
		p, err := parser.NewRegexParser(in, re, f.cfg.FieldPathToGroup(), opts)
		if err != nil {
			return nil, err
		}
		return p, nil
	}

	pattern, err := f.patterns.Get(expression)
	if err != nil {
		return nil, err
	}
	return parser.NewGrokParser(in, pattern, f.budget, opts), nil
}
