// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/kolapsis/logparse/logparse"
	"github.com/kolapsis/logparse/logparse/metrics"
	"github.com/kolapsis/logparse/logparse/parser"
	"github.com/kolapsis/logparse/logparse/stream"
	"github.com/kolapsis/logparse/logparse/tailer"
)

// ParseCmd parses whole files.
type ParseCmd struct {
	Files     []string `arg:"" help:"Log files to parse" type:"existingfile"`
	Jobs      int      `short:"j" name:"jobs" help:"Files parsed concurrently" default:"1"`
	NoSummary bool     `name:"no-summary" help:"Do not print statistics to stderr"`
}

// Run executes the parse command.
func (p *ParseCmd) Run(cli *CLI) error {
	logger := createLogger(os.Stderr, cli.Verbose)

	factory, err := cli.factory(logger)
	if err != nil {
		return err
	}
	match, err := cli.matcher()
	if err != nil {
		return fmt.Errorf("parsing --where: %w", err)
	}

	out := cli.output()
	defer out.Close()
	sink := logparse.NewJSONSink(out)
	agg := cli.aggregator()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.Jobs, 1))

	for _, path := range p.Files {
		path := path
		g.Go(func() error {
			return parseFile(gCtx, factory, path, logparse.PipelineOptions{
				Mode:       factory.Mode().String(),
				Matcher:    match,
				Aggregator: agg,
				Sink:       sink,
				Logger:     logger,
				Verbosity:  cli.Verbose,
			})
		})
	}
	err = g.Wait()

	if !p.NoSummary {
		logparse.WriteSummary(os.Stderr, strings.Join(p.Files, ", "), time.Since(start), agg.Peek())
	}
	return err
}

// parseFile runs one file through a pipeline built from opts.
func parseFile(ctx context.Context, factory *logparse.Factory, path string, opts logparse.PipelineOptions) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	p, err := factory.Open(path, f, 0)
	if err != nil {
		return err
	}

	opts.Parser = p
	pl, err := logparse.NewPipeline(opts)
	if err != nil {
		return err
	}

	stats, err := pl.Run(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	opts.Logger.Info("parsed file", "path", path, "offset", pl.Offset(), "records", stats.Records)
	return nil
}

// FollowCmd follows a growing file.
type FollowCmd struct {
	File          string        `arg:"" help:"Log file to follow" type:"existingfile"`
	FromStart     bool          `name:"from-start" help:"Parse the existing content before following"`
	Poll          bool          `name:"poll" help:"Poll for changes instead of using inotify"`
	StatsInterval time.Duration `name:"stats-interval" help:"Print and reset statistics at this interval (0 disables)" default:"0"`
	MetricsListen string        `name:"metrics-listen" help:"Serve Prometheus metrics on this address, e.g. :9090"`
}

// Run executes the follow command.
func (c *FollowCmd) Run(cli *CLI) error {
	logger := createLogger(os.Stderr, cli.Verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if c.MetricsListen != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.New(reg)

		srv := serveMetrics(c.MetricsListen, reg, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	factory, err := cli.factory(logger, logparse.WithMetrics(m))
	if err != nil {
		return err
	}
	match, err := cli.matcher()
	if err != nil {
		return fmt.Errorf("parsing --where: %w", err)
	}

	var opts []tailer.Option
	if c.FromStart {
		opts = append(opts, tailer.FromStart())
	}
	if c.Poll {
		opts = append(opts, tailer.WithPolling())
	}
	t := tailer.New(c.File, logger, opts...)
	r, err := t.Start(ctx)
	if err != nil {
		return err
	}
	defer t.Stop()

	p, err := factory.Open(c.File, r, t.Offset())
	if err != nil {
		return err
	}

	out := cli.output()
	defer out.Close()

	pl, err := logparse.NewPipeline(logparse.PipelineOptions{
		Parser:     p,
		Mode:       factory.Mode().String(),
		Matcher:    match,
		Aggregator: cli.aggregator(),
		Metrics:    m,
		Sink:       logparse.NewJSONSink(out),
		Logger:     logger,
		Verbosity:  cli.Verbose,
	})
	if err != nil {
		return err
	}

	dump := make(chan os.Signal, 1)
	signal.Notify(dump, syscall.SIGUSR1)
	defer signal.Stop(dump)

	reportCtx, stopReport := context.WithCancel(ctx)
	defer stopReport()
	go pl.Report(reportCtx, os.Stderr, c.File, c.StatsInterval, dump)

	logger.Info("following file", "path", c.File, "offset", t.Offset(), "mode", factory.Mode())
	stats, err := pl.Run(ctx)
	stopReport()

	if n := t.Rotations(); n > 0 {
		logger.Warn("file was rotated while following, later offsets are stream positions", "path", c.File, "rotations", n)
	}

	logparse.WriteSummary(os.Stderr, c.File, pl.Elapsed(), stats)
	return err
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}

// TranslateCmd prints the expression parsers are compiled from.
type TranslateCmd struct{}

// Run executes the translate command.
func (c *TranslateCmd) Run(cli *CLI) error {
	factory, err := cli.factory(createLogger(os.Stderr, cli.Verbose))
	if err != nil {
		return err
	}

	expression, err := factory.Expression()
	if err != nil {
		return err
	}
	fmt.Println(expression)
	return nil
}

// CheckCmd tests the configuration with a file.
type CheckCmd struct {
	File    string `arg:"" help:"Log file to check" type:"existingfile"`
	Lines   int    `short:"n" name:"lines" help:"Limit number of lines to check" default:"0"`
	Samples int    `name:"samples" help:"Records to print" default:"3"`
}

// Run executes the check command.
func (c *CheckCmd) Run(cli *CLI) error {
	logger := createLogger(os.Stderr, cli.Verbose)

	factory, err := cli.factory(logger)
	if err != nil {
		return err
	}
	expression, err := factory.Expression()
	if err != nil {
		return err
	}

	fmt.Printf("Mode:        %s\n", factory.Mode())
	fmt.Printf("Expression:  %s\n", expression)
	fmt.Printf("Line budget: %d\n", factory.LineBudget())
	fmt.Printf("Checking:    %s\n", c.File)
	if c.Lines > 0 {
		fmt.Printf("Line limit:  %d\n", c.Lines)
	}
	fmt.Println()

	// Find where the line limit ends so the parser sees whole lines only.
	var end int64
	var truncated int
	count, err := tailer.ProcessFile(c.File, func(line stream.Line) {
		end = line.End
		if line.Truncated {
			truncated++
		}
	}, c.Lines)
	if err != nil {
		return fmt.Errorf("processing file: %w", err)
	}

	f, err := os.Open(c.File)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	p, err := factory.Open(c.File, io.LimitReader(f, end), 0)
	if err != nil {
		return err
	}
	if paths := fieldPaths(p); len(paths) > 0 {
		fmt.Printf("Mapped fields:  %s\n", strings.Join(paths, ", "))
	}

	var samples []*parser.Record
	match, err := cli.matcher()
	if err != nil {
		return fmt.Errorf("parsing --where: %w", err)
	}
	pl, err := logparse.NewPipeline(logparse.PipelineOptions{
		Parser:     p,
		Mode:       factory.Mode().String(),
		Matcher:    match,
		Aggregator: cli.aggregator(),
		Sink: logparse.SinkFunc(func(rec *parser.Record) error {
			if len(samples) < c.Samples {
				samples = append(samples, rec)
			}
			return nil
		}),
		Logger:    logger,
		Verbosity: max(cli.Verbose, 1),
	})
	if err != nil {
		return err
	}

	stats, err := pl.Run(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Lines read:     %d\n", count)
	fmt.Printf("Lines too long: %d\n", truncated)
	printSamples(os.Stdout, samples)
	logparse.WriteSummary(os.Stdout, c.File, pl.Elapsed(), stats)

	if stats.Records == 0 && count > 0 {
		return fmt.Errorf("no record matched the %s layout", factory.Mode())
	}
	return nil
}

// fieldPaths lists the explicitly mapped output fields of a regex parser.
func fieldPaths(p parser.Parser) []string {
	if rp, ok := p.(*parser.RegexParser); ok {
		return rp.FieldPaths()
	}
	return nil
}

func printSamples(w io.Writer, samples []*parser.Record) {
	if len(samples) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, " Sample records:")
	sink := logparse.NewJSONSink(w)
	for _, rec := range samples {
		_ = sink.Write(rec)
	}
}
