// SPDX-License-Identifier: MIT

package grok

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var patternName = regexp.MustCompile(`^\w+$`)

// Definitions maps pattern names to their expressions.
type Definitions map[string]string

// ParseDefinitions reads dictionary text: one "NAME expression" per line,
// blank lines and lines starting with '#' ignored. A name defined twice keeps
// its last expression.
func ParseDefinitions(r io.Reader, source string) (Definitions, error) {
	defs := Definitions{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		sep := strings.IndexAny(line, " \t")
		if sep < 0 {
			return nil, &DefinitionError{Source: source, Line: lineNo, Reason: "missing expression"}
		}
		name, expr := line[:sep], strings.TrimSpace(line[sep+1:])
		if expr == "" {
			return nil, &DefinitionError{Source: source, Line: lineNo, Reason: "missing expression"}
		}
		if !patternName.MatchString(name) {
			return nil, &DefinitionError{Source: source, Line: lineNo, Reason: fmt.Sprintf("invalid pattern name %q", name)}
		}

		defs[name] = expr
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", source, err)
	}

	return defs, nil
}

// Merge returns a new set with the definitions of each layer applied in
// order, so later layers override earlier ones.
func Merge(layers ...Definitions) Definitions {
	merged := Definitions{}
	for _, layer := range layers {
		for name, expr := range layer {
			merged[name] = expr
		}
	}
	return merged
}
