// SPDX-License-Identifier: MIT

package grok

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoCaptures is returned for an expression that would yield no fields.
var ErrNoCaptures = errors.New("expression has no named captures")

// UndefinedPatternError reports a %{NAME} reference with no definition.
// Referrer is empty when the reference appears in the compiled expression
// itself.
type UndefinedPatternError struct {
	Name     string
	Referrer string
}

func (e *UndefinedPatternError) Error() string {
	if e.Referrer == "" {
		return fmt.Sprintf("undefined pattern %%{%s}", e.Name)
	}
	return fmt.Sprintf("undefined pattern %%{%s} referenced by %s", e.Name, e.Referrer)
}

// CyclicPatternError reports definitions that reference each other in a
// loop. Path starts and ends with the same name.
type CyclicPatternError struct {
	Path []string
}

func (e *CyclicPatternError) Error() string {
	return "cyclic pattern reference: " + strings.Join(e.Path, " -> ")
}

// DefinitionError reports a malformed dictionary line.
type DefinitionError struct {
	Source string
	Line   int
	Reason string
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Source, e.Line, e.Reason)
}
