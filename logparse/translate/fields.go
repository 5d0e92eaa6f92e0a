// SPDX-License-Identifier: MIT

// Package translate converts Apache and log4j layout strings into named-pattern
// expressions understood by the grok compiler.
package translate

import (
	"fmt"
	"regexp"
	"strings"
)

// captureName finds field names in %{PATTERN:field} references and
// (?P<field>...) groups.
var captureName = regexp.MustCompile(`%\{(\w+):(\w+)((?::\w+)?)\}|\(\?P<(\w+)>`)

// uniqueFields renames repeated output fields so that each capture in expr
// keeps its value. The second "clientip" becomes "clientip_2" and so on.
func uniqueFields(expr string) string {
	seen := map[string]int{}
	return captureName.ReplaceAllStringFunc(expr, func(m string) string {
		sub := captureName.FindStringSubmatch(m)
		name := sub[2]
		if name == "" {
			name = sub[4]
		}

		seen[name]++
		if seen[name] == 1 {
			return m
		}
		renamed := fmt.Sprintf("%s_%d", name, seen[name])
		if sub[4] != "" {
			return "(?P<" + renamed + ">"
		}
		return "%{" + sub[1] + ":" + renamed + sub[3] + "}"
	})
}

// fieldName lower-cases s and replaces every non-word character with '_'.
func fieldName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func capture(pattern, field string) string {
	return "%{" + pattern + ":" + field + "}"
}
