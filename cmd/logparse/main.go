// SPDX-License-Identifier: MIT

// logparse parses log files into JSON records using Apache, log4j, grok or
// regular-expression layouts.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kolapsis/logparse/logparse"
	"github.com/kolapsis/logparse/logparse/aggregator"
	"github.com/kolapsis/logparse/logparse/config"
	"github.com/kolapsis/logparse/logparse/matcher"
)

// CLI represents the command-line interface.
type CLI struct {
	Config  string            `short:"c" name:"config" help:"YAML file of parser settings" type:"existingfile"`
	Set     map[string]string `short:"s" name:"set" help:"Override a setting (key=value), repeatable" mapsep:"none"`
	Mode    config.LogMode    `short:"m" name:"mode" help:"Log format: ${modes}" default:"COMMON_LOG_FORMAT"`
	Verbose int               `short:"v" name:"verbose" type:"counter" help:"Increase verbosity (-v, -vv, -vvv)"`

	Where    []string `short:"w" name:"where" help:"Keep records matching field=value, field@=a,b, field~=regex or field*=text" sep:"none"`
	Distinct []string `name:"distinct" help:"Count distinct values of these fields"`
	Sum      []string `name:"sum" help:"Sum numeric values of these fields"`

	Output     string `short:"o" name:"output" help:"Write records to this file instead of stdout" type:"path"`
	MaxSize    int    `name:"max-size" help:"Rotate the output file after this many megabytes" default:"100"`
	MaxBackups int    `name:"max-backups" help:"Rotated output files to keep" default:"3"`

	Parse     ParseCmd     `cmd:"" default:"withargs" help:"Parse log files (default command)"`
	Follow    FollowCmd    `cmd:"" help:"Follow a growing log file"`
	Translate TranslateCmd `cmd:"" help:"Print the pattern expression for the configured mode"`
	Check     CheckCmd     `cmd:"" help:"Check the configuration against a log file"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("logparse"),
		kong.Description("Parse log lines into structured records"),
		kong.UsageOnError(),
		kong.Vars{"modes": modeNames()},
	)

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}

func modeNames() string {
	var names string
	for i, mode := range config.LogModes() {
		if i > 0 {
			names += ", "
		}
		names += mode.String()
	}
	return names
}

// settings merges the configuration file with the --set overrides.
func (c *CLI) settings() (*config.FactoryConfig, error) {
	values := map[string]any{}
	if c.Config != "" {
		var err error
		if values, err = config.LoadValues(c.Config); err != nil {
			return nil, err
		}
	}
	for key, value := range c.Set {
		values[key] = value
	}
	return config.FromMap(values)
}

// factory builds the parser factory for the selected mode.
func (c *CLI) factory(logger *slog.Logger, opts ...logparse.Option) (*logparse.Factory, error) {
	cfg, err := c.settings()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	opts = append([]logparse.Option{logparse.WithLogger(logger)}, opts...)
	f, err := logparse.NewFactory(c.Mode, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating factory: %w", err)
	}
	return f, nil
}

func (c *CLI) matcher() (*matcher.Matcher, error) {
	conditions := make([]matcher.Condition, 0, len(c.Where))
	for _, expr := range c.Where {
		cond, err := matcher.ParseCondition(expr)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, cond)
	}
	return matcher.New(conditions...)
}

func (c *CLI) aggregator() *aggregator.Aggregator {
	return aggregator.New(aggregator.WithDistinct(c.Distinct...), aggregator.WithSum(c.Sum...))
}

// output opens the record destination. Files are rotated by size.
func (c *CLI) output() io.WriteCloser {
	if c.Output == "" {
		return nopCloser{os.Stdout}
	}
	return &lumberjack.Logger{
		Filename:   c.Output,
		MaxSize:    c.MaxSize,
		MaxBackups: c.MaxBackups,
	}
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// createLogger creates a logger based on verbosity level. Terminals get
// colored output.
func createLogger(w *os.File, verbosity int) *slog.Logger {
	var level slog.Level
	switch verbosity {
	case 0:
		level = slog.LevelWarn
	case 1:
		level = slog.LevelInfo
	case 2:
		level = slog.LevelDebug
	default:
		level = slog.LevelDebug - 4 // Even more verbose
	}

	if isatty.IsTerminal(w.Fd()) {
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
		}))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
