// SPDX-License-Identifier: MIT

package translate

import (
	"fmt"
	"regexp"
	"strings"
)

// DateFormat translates a java.text.SimpleDateFormat pattern into a regular
// expression without capture groups.
func DateFormat(format string) (string, error) {
	var b strings.Builder

	for i := 0; i < len(format); {
		c := format[i]
		switch {
		case c == '\'':
			text, next, err := quoted(format, i)
			if err != nil {
				return "", err
			}
			b.WriteString(regexp.QuoteMeta(text))
			i = next

		case isLetter(c):
			j := i
			for j < len(format) && format[j] == c {
				j++
			}
			re, ok := dateField(c, j-i)
			if !ok {
				return "", &FormatTranslationError{Layout: format, Directive: format[i:j], Position: i, Reason: "unsupported date field"}
			}
			b.WriteString(re)
			i = j

		default:
			j := i + 1
			for j < len(format) && format[j] != '\'' && !isLetter(format[j]) {
				j++
			}
			b.WriteString(regexp.QuoteMeta(format[i:j]))
			i = j
		}
	}

	return b.String(), nil
}

// quoted reads a '...' section starting at pos. Two single quotes stand for
// one, inside or outside a quoted section.
func quoted(format string, pos int) (string, int, error) {
	if pos+1 < len(format) && format[pos+1] == '\'' {
		return "'", pos + 2, nil
	}

	var text strings.Builder
	for j := pos + 1; j < len(format); j++ {
		if format[j] != '\'' {
			text.WriteByte(format[j])
			continue
		}
		if j+1 < len(format) && format[j+1] == '\'' {
			text.WriteByte('\'')
			j++
			continue
		}
		return text.String(), j + 1, nil
	}
	return "", 0, &FormatTranslationError{Layout: format, Directive: format[pos:], Position: pos, Reason: "unterminated quote in"}
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func digits(n, max int) string {
	if n == 1 {
		return fmt.Sprintf(`\d{1,%d}`, max)
	}
	return fmt.Sprintf(`\d{%d}`, n)
}

func dateField(letter byte, n int) (string, bool) {
	switch letter {
	case 'y':
		if n == 2 {
			return `\d{2}`, true
		}
		return `\d{4}`, true
	case 'M':
		switch {
		case n >= 4:
			return `[A-Za-z]+`, true
		case n == 3:
			return `[A-Za-z]{3}`, true
		}
		return digits(n, 2), true
	case 'd', 'H', 'h', 'k', 'K', 'm', 's':
		return digits(n, 2), true
	case 'S', 'D':
		return digits(n, 3), true
	case 'u':
		return `\d`, true
	case 'a':
		return `[AaPp][Mm]`, true
	case 'E':
		if n >= 4 {
			return `[A-Za-z]+`, true
		}
		return `[A-Za-z]{3}`, true
	case 'z':
		return `[A-Za-z]{1,5}(?:[+-]\d{1,2}(?::?\d{2})?)?`, true
	case 'Z':
		return `[+-]\d{4}`, true
	case 'X':
		switch n {
		case 1:
			return `(?:Z|[+-]\d{2})`, true
		case 2:
			return `(?:Z|[+-]\d{4})`, true
		}
		return `(?:Z|[+-]\d{2}:\d{2})`, true
	}
	return "", false
}
