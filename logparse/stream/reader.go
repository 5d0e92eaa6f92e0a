// SPDX-License-Identifier: MIT

// Package stream reads newline-framed text while tracking the byte offset of
// every line.
package stream

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"unicode/utf8"
)

// DefaultMaxLineLength is the longest line kept before truncation.
const DefaultMaxLineLength = 1024 * 1024

// Line is one line of input without its terminator.
type Line struct {
	Text string
	// Offset is the position of the first byte of the line.
	Offset int64
	// End is the position just past the line terminator.
	End int64
	// Truncated is set when the line exceeded the maximum length and its
	// tail was discarded.
	Truncated bool
}

// Option configures a Reader.
type Option func(*Reader)

// WithMaxLineLength sets the number of bytes kept per line.
func WithMaxLineLength(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.maxLen = n
		}
	}
}

// Reader splits an io.Reader into lines. "\n" and "\r\n" both end a line;
// a final line without terminator is returned before io.EOF.
type Reader struct {
	br     *bufio.Reader
	pos    int64
	maxLen int
}

// New creates a Reader positioned at offset 0 of r.
func New(r io.Reader, opts ...Option) *Reader {
	rd := &Reader{
		br:     bufio.NewReader(r),
		maxLen: DefaultMaxLineLength,
	}
	for _, opt := range opts {
		opt(rd)
	}
	return rd
}

// Pos returns the number of bytes consumed so far.
func (r *Reader) Pos() int64 {
	return r.pos
}

// ReadLine returns the next line, or io.EOF once the input is exhausted.
func (r *Reader) ReadLine() (Line, error) {
	line := Line{Offset: r.pos}
	var buf []byte

	for {
		chunk, err := r.br.ReadSlice('\n')
		r.pos += int64(len(chunk))

		if room := r.maxLen + 2 - len(buf); room > 0 {
			// Keep two extra bytes so a "\r\n" terminator survives the cap.
			buf = append(buf, chunk[:min(len(chunk), room)]...)
		} else if len(chunk) > 0 {
			line.Truncated = true
		}

		switch {
		case err == nil:
			line.End = r.pos
			return r.finish(line, buf), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if r.pos == line.Offset {
				return Line{}, io.EOF
			}
			line.End = r.pos
			return r.finish(line, buf), nil
		default:
			return Line{}, err
		}
	}
}

func (r *Reader) finish(line Line, buf []byte) Line {
	buf = bytes.TrimSuffix(buf, []byte("\n"))
	buf = bytes.TrimSuffix(buf, []byte("\r"))

	if len(buf) > r.maxLen {
		buf = buf[:r.maxLen]
		if start := lastRuneStart(buf); !utf8.FullRune(buf[start:]) {
			buf = buf[:start]
		}
		line.Truncated = true
	}

	line.Text = string(buf)
	return line
}

func lastRuneStart(b []byte) int {
	i := len(b) - 1
	for i > 0 && !utf8.RuneStart(b[i]) {
		i--
	}
	return i
}
