// SPDX-License-Identifier: MIT

package config

// ResolveLineBudget maps an error policy to the number of trailing unmatched
// lines a parser may fold into the preceding record:
//
//	ERROR                  -> -1 (every unmatched line is an error)
//	IGNORE                 ->  0 (unmatched lines are dropped)
//	INCLUDE_AS_STACK_TRACE -> trim
func ResolveLineBudget(mode OnParseError, trim int) (int, error) {
	switch mode {
	case OnErrorFail:
		return -1, nil
	case OnErrorIgnore:
		return 0, nil
	case OnErrorIncludeAsStackTrace:
		if trim < 0 {
			return 0, &ConfigurationError{Key: KeyTrimStackTrace, Value: trim, Reason: "must not be negative"}
		}
		return trim, nil
	default:
		return 0, &InternalError{What: mode.String()}
	}
}
