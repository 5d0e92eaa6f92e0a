// SPDX-License-Identifier: MIT

package logparse

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/kolapsis/logparse/logparse/aggregator"
)

// WriteSummary prints run statistics as a table.
func WriteSummary(w io.Writer, source string, elapsed time.Duration, s aggregator.Stats) {
	now := time.Now().UTC().Format(time.RFC3339)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "───────────────────────────────────────────────────────────")
	fmt.Fprintf(w, " SUMMARY @ %s (%s elapsed)\n", now, elapsed.Round(time.Second))
	fmt.Fprintln(w, "───────────────────────────────────────────────────────────")
	fmt.Fprintf(w, " Source: %s\n", source)
	fmt.Fprintf(w, "   Records:           %d\n", s.Records)
	fmt.Fprintf(w, "   Parse errors:      %d\n", s.ParseErrors)
	fmt.Fprintf(w, "   Filtered:          %d\n", s.Filtered)
	fmt.Fprintf(w, "   Stack-trace lines: %d\n", s.StackTraceLines)
	fmt.Fprintf(w, "   Truncated:         %d\n", s.Truncated)
	fmt.Fprintf(w, "   Last offset:       %d\n", s.LastOffset)

	if len(s.Distinct) > 0 || len(s.Sums) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, " Tracked Fields:")
		fmt.Fprintln(w, " ┌─────────────────────────────┬──────────┬────────────────┐")
		fmt.Fprintln(w, " │ Field                       │ Kind     │ Value          │")
		fmt.Fprintln(w, " ├─────────────────────────────┼──────────┼────────────────┤")
		for _, field := range sortedKeys(s.Distinct) {
			fmt.Fprintf(w, " │ %-27s │ %-8s │ %14s │\n", field, "distinct", formatValue(s.Distinct[field]))
		}
		for _, field := range sortedKeys(s.Sums) {
			fmt.Fprintf(w, " │ %-27s │ %-8s │ %14s │\n", field, "sum", formatValue(s.Sums[field]))
		}
		fmt.Fprintln(w, " └─────────────────────────────┴──────────┴────────────────┘")
	}

	fmt.Fprintln(w, "───────────────────────────────────────────────────────────")
}

// Report writes a summary to w every interval, resetting the statistics, and
// a non-resetting summary whenever dump delivers a signal. It returns when
// ctx is done. A zero interval disables periodic summaries.
func (p *Pipeline) Report(ctx context.Context, w io.Writer, source string, interval time.Duration, dump <-chan os.Signal) {
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-dump:
			p.logger.Info("dumping statistics")
			WriteSummary(w, source, p.Elapsed(), p.aggregator.Peek())
		case <-tick:
			WriteSummary(w, source, p.Elapsed(), p.aggregator.Snapshot())
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formatValue formats a statistic for display.
func formatValue(v any) string {
	switch val := v.(type) {
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%.2f", val)
	case int:
		return fmt.Sprintf("%d", val)
	case int64:
		return fmt.Sprintf("%d", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
