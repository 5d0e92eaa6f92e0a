// SPDX-License-Identifier: MIT

package parser

import (
	"errors"
	"io"
	"strings"

	"github.com/kolapsis/logparse/logparse/stream"
)

// PatternMatcher matches a line and returns its named captures.
type PatternMatcher interface {
	Match(line string) (map[string]string, bool)
}

type heldLine struct {
	line   stream.Line
	fields map[string]string
}

// GrokParser parses records whose first line matches a named-pattern
// expression. The line budget decides what happens to lines that do not
// match:
//
//	-1  each one is returned as a *ParseError
//	 0  they are dropped
//	 N  up to N of them following a record are kept as its stack trace and
//	    the rest are dropped
//
// Unmatched lines that do not follow a record are dropped when the budget is
// 0 or more.
type GrokParser struct {
	in      LineReader
	opts    Options
	pattern PatternMatcher
	budget  int

	// held is the first line of the next record, read while collecting the
	// stack trace of the previous one.
	held *heldLine
	// err is a read error seen after a record was completed.
	err error
}

// NewGrokParser creates a parser reading from in.
func NewGrokParser(in LineReader, pattern PatternMatcher, budget int, opts Options) *GrokParser {
	return &GrokParser{
		in:      in,
		opts:    opts,
		pattern: pattern,
		budget:  budget,
	}
}

// Parse returns the next record.
func (p *GrokParser) Parse() (*Record, error) {
	first, fields, err := p.next()
	if err != nil {
		return nil, err
	}

	rec := p.record(first, fields)
	if p.budget <= 0 {
		return rec, nil
	}

	var trace []string
	for {
		line, err := p.in.ReadLine()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				p.err = err
			}
			break
		}

		if fields, ok := p.pattern.Match(line.Text); ok {
			p.held = &heldLine{line: line, fields: fields}
			break
		}
		if len(trace) < p.budget {
			trace = append(trace, line.Text)
			rec.Truncated = rec.Truncated || line.Truncated
		}
	}

	if len(trace) > 0 {
		rec.StackTraceLines = len(trace)
		rec.Fields[FieldStackTrace] = strings.Join(trace, "\n")
		if p.opts.RetainOriginalText {
			rec.Fields[FieldOriginalLine] = first.Text + "\n" + strings.Join(trace, "\n")
		}
	}
	return rec, nil
}

// next returns the first line of the next record.
func (p *GrokParser) next() (stream.Line, map[string]string, error) {
	if h := p.held; h != nil {
		p.held = nil
		return h.line, h.fields, nil
	}
	if err := p.err; err != nil {
		p.err = nil
		return stream.Line{}, nil, err
	}

	for {
		line, err := p.in.ReadLine()
		if err != nil {
			return stream.Line{}, nil, err
		}

		if fields, ok := p.pattern.Match(line.Text); ok {
			return line, fields, nil
		}

		if p.budget < 0 {
			offset := p.opts.StartOffset + line.Offset
			return stream.Line{}, nil, &ParseError{
				ID:     p.opts.recordID(offset),
				Offset: offset,
				Line:   line.Text,
				Reason: "line does not match pattern",
			}
		}
	}
}

func (p *GrokParser) record(line stream.Line, captures map[string]string) *Record {
	offset := p.opts.StartOffset + line.Offset

	fields := make(map[string]any, len(captures)+2)
	for name, value := range captures {
		fields[name] = value
	}
	if p.opts.RetainOriginalText {
		fields[FieldOriginalLine] = line.Text
	}

	return &Record{
		ID:        p.opts.recordID(offset),
		Offset:    offset,
		Fields:    fields,
		Truncated: line.Truncated,
	}
}

// Offset implements Parser. A line read ahead for the next record is not
// counted as consumed.
func (p *GrokParser) Offset() int64 {
	if p.held != nil {
		return p.opts.StartOffset + p.held.line.Offset
	}
	return p.opts.StartOffset + p.in.Pos()
}
