// SPDX-License-Identifier: MIT

package translate

import "fmt"

// FormatTranslationError reports a layout directive that has no translation.
type FormatTranslationError struct {
	Layout    string
	Directive string
	Position  int
	Reason    string
	Err       error
}

func (e *FormatTranslationError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "unsupported directive"
	}
	msg := fmt.Sprintf("translating %q: %s %q at position %d", e.Layout, reason, e.Directive, e.Position)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatTranslationError) Unwrap() error {
	return e.Err
}
