// SPDX-License-Identifier: MIT

package logparse

import "fmt"

// ParserConstructionError is returned by Factory.BuildParser for every
// failure. Err holds the cause: a *translate.FormatTranslationError, a grok
// resolution error, a regular expression error or a *PreconditionError.
type ParserConstructionError struct {
	ID     string
	Offset int64
	Err    error
}

func (e *ParserConstructionError) Error() string {
	return fmt.Sprintf("building parser %s at offset %d: %v", e.ID, e.Offset, e.Err)
}

func (e *ParserConstructionError) Unwrap() error {
	return e.Err
}

// PreconditionError reports a stream that was not at its start when a parser
// was built on it.
type PreconditionError struct {
	Pos int64
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("stream must be at position 0, found position %d", e.Pos)
}
