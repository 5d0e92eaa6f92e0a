// SPDX-License-Identifier: MIT

package parser

import (
	"regexp"
	"sort"
)

type groupField struct {
	path  string
	group int
}

// RegexParser parses single lines with a regular expression. Each output
// field takes the text of one capture group.
type RegexParser struct {
	in     LineReader
	opts   Options
	re     *regexp.Regexp
	fields []groupField
}

// NewRegexParser creates a parser reading from in. groups maps field paths to
// 1-based capture group indexes; when it is empty the expression's named
// groups become fields.
func NewRegexParser(in LineReader, re *regexp.Regexp, groups map[string]int, opts Options) (*RegexParser, error) {
	fields, err := groupFields(re, groups)
	if err != nil {
		return nil, err
	}

	return &RegexParser{
		in:     in,
		opts:   opts,
		re:     re,
		fields: fields,
	}, nil
}

func groupFields(re *regexp.Regexp, groups map[string]int) ([]groupField, error) {
	var fields []groupField

	if len(groups) == 0 {
		for i, name := range re.SubexpNames() {
			if name != "" {
				fields = append(fields, groupField{path: name, group: i})
			}
		}
		return fields, nil
	}

	for path, group := range groups {
		if group < 1 || group > re.NumSubexp() {
			return nil, &GroupRangeError{Path: path, Group: group, Max: re.NumSubexp()}
		}
		fields = append(fields, groupField{path: path, group: group})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].path < fields[j].path })
	return fields, nil
}

// Parse reads the next line. A line the expression does not match is
// returned as a *ParseError.
func (p *RegexParser) Parse() (*Record, error) {
	line, err := p.in.ReadLine()
	if err != nil {
		return nil, err
	}

	offset := p.opts.StartOffset + line.Offset
	loc := p.re.FindStringSubmatchIndex(line.Text)
	if loc == nil {
		return nil, &ParseError{
			ID:     p.opts.recordID(offset),
			Offset: offset,
			Line:   line.Text,
			Reason: "line does not match regular expression",
		}
	}

	fields := make(map[string]any, len(p.fields)+1)
	for _, f := range p.fields {
		start, end := loc[2*f.group], loc[2*f.group+1]
		if start < 0 {
			continue
		}
		SetField(fields, f.path, line.Text[start:end])
	}
	if p.opts.RetainOriginalText {
		fields[FieldOriginalLine] = line.Text
	}

	return &Record{
		ID:        p.opts.recordID(offset),
		Offset:    offset,
		Fields:    fields,
		Truncated: line.Truncated,
	}, nil
}

// Offset implements Parser.
func (p *RegexParser) Offset() int64 {
	return p.opts.StartOffset + p.in.Pos()
}

// FieldPaths returns the output field paths in group order.
func (p *RegexParser) FieldPaths() []string {
	fields := make([]groupField, len(p.fields))
	copy(fields, p.fields)
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].group < fields[j].group })

	paths := make([]string, len(fields))
	for i, f := range fields {
		paths[i] = f.path
	}
	return paths
}
