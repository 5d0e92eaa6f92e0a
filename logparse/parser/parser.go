// SPDX-License-Identifier: MIT

// Package parser turns lines read from a stream into structured records.
package parser

import (
	"fmt"

	"github.com/kolapsis/logparse/logparse/stream"
)

// Reserved field names.
const (
	FieldOriginalLine = "originalLine"
	FieldStackTrace   = "stackTrace"
)

// Parser reads one logical record at a time from its stream.
type Parser interface {
	// Parse returns the next record. It returns io.EOF when the stream is
	// exhausted and a *ParseError for a line it could not parse; parsing may
	// continue after a *ParseError.
	Parse() (*Record, error)

	// Offset is the absolute position from which parsing would resume.
	Offset() int64
}

// LineReader is the stream a parser consumes.
type LineReader interface {
	Pos() int64
	ReadLine() (stream.Line, error)
}

// Record is one parsed log entry.
type Record struct {
	// ID identifies the record as "<source id>::<offset>".
	ID string
	// Offset is the absolute position of the entry's first line.
	Offset int64
	Fields map[string]any
	// StackTraceLines counts the continuation lines kept in the record.
	StackTraceLines int
	// Truncated is set when any line of the record was cut short.
	Truncated bool
}

// Options carries the settings shared by all parsers.
type Options struct {
	// ID prefixes record identifiers.
	ID string
	// StartOffset is the absolute position of the stream's first byte.
	StartOffset int64
	// RetainOriginalText stores the raw text under FieldOriginalLine.
	RetainOriginalText bool
}

func (o Options) recordID(offset int64) string {
	return fmt.Sprintf("%s::%d", o.ID, offset)
}

// ParseError reports a line that did not match the parser's pattern.
type ParseError struct {
	ID     string
	Offset int64
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	line := e.Line
	if len(line) > 120 {
		line = line[:120] + "..."
	}
	return fmt.Sprintf("%s: %s: %q", e.ID, e.Reason, line)
}

// GroupRangeError reports a field mapped to a capture group the expression
// does not have.
type GroupRangeError struct {
	Path  string
	Group int
	Max   int
}

func (e *GroupRangeError) Error() string {
	return fmt.Sprintf("field %q: capture group %d out of range 1..%d", e.Path, e.Group, e.Max)
}
