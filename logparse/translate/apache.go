// SPDX-License-Identifier: MIT

package translate

import (
	"regexp"
	"strings"
)

// apacheRule describes how one Apache conversion letter translates.
type apacheRule struct {
	// bare is the fragment for %X; empty when the letter needs an argument.
	bare string
	// braced builds the fragment for %{arg}X. It returns "" for an argument it
	// does not accept. Nil when the letter takes no argument.
	braced func(arg string) string
}

const apacheRequest = `(?:%{WORD:verb} %{NOTSPACE:request}(?: HTTP/%{NUMBER:httpversion})?|%{DATA:rawrequest})`

var apacheRules = map[byte]apacheRule{
	'a': {bare: capture("IPORHOST", "clientip"), braced: func(arg string) string {
		if arg == "c" {
			return capture("IPORHOST", "peerip")
		}
		return ""
	}},
	'A': {bare: capture("IPORHOST", "localip")},
	'B': {bare: capture("NUMBER", "bytes")},
	'b': {bare: `(?:` + capture("NUMBER", "bytes") + `|-)`},
	'C': {braced: prefixed("NOTSPACE", "cookie_")},
	'D': {bare: capture("NUMBER", "time_taken_us")},
	'e': {braced: prefixed("DATA", "env_")},
	'f': {bare: capture("NOTSPACE", "filename")},
	'h': {bare: capture("IPORHOST", "clientip")},
	'H': {bare: capture("NOTSPACE", "protocol")},
	'i': {braced: func(arg string) string {
		switch fieldName(arg) {
		case "referer", "referrer":
			return capture("DATA", "referrer")
		case "user_agent":
			return capture("DATA", "agent")
		}
		return capture("DATA", "req_"+fieldName(arg))
	}},
	'I': {bare: capture("NUMBER", "bytes_received")},
	'k': {bare: capture("NUMBER", "keepalive")},
	'l': {bare: capture("USER", "ident")},
	'L': {bare: capture("NOTSPACE", "logid")},
	'm': {bare: capture("WORD", "verb")},
	'n': {braced: prefixed("DATA", "note_")},
	'o': {braced: prefixed("DATA", "resp_")},
	'O': {bare: capture("NUMBER", "bytes_sent")},
	'p': {bare: capture("POSINT", "port"), braced: func(arg string) string {
		switch arg {
		case "canonical", "local", "remote":
			return capture("POSINT", arg+"_port")
		}
		return ""
	}},
	'P': {bare: capture("POSINT", "pid"), braced: func(arg string) string {
		switch arg {
		case "pid", "tid", "hextid":
			return capture("NOTSPACE", arg)
		}
		return ""
	}},
	'q': {bare: capture("NOTSPACE", "querystring") + "?"},
	'r': {bare: apacheRequest},
	'R': {bare: capture("NOTSPACE", "handler")},
	's': {bare: capture("NUMBER", "response")},
	'S': {bare: capture("NUMBER", "bytes_transferred")},
	't': {bare: `\[` + capture("HTTPDATE", "timestamp") + `\]`, braced: func(arg string) string {
		arg = strings.TrimPrefix(strings.TrimPrefix(arg, "begin:"), "end:")
		switch arg {
		case "sec", "msec", "usec", "msec_frac", "usec_frac":
			return capture("NUMBER", "timestamp")
		}
		return capture("DATA", "timestamp")
	}},
	'T': {bare: capture("NUMBER", "time_taken"), braced: func(string) string {
		return capture("NUMBER", "time_taken")
	}},
	'u': {bare: capture("USER", "auth")},
	'U': {bare: capture("NOTSPACE", "urlpath")},
	'v': {bare: capture("IPORHOST", "servername")},
	'V': {bare: capture("IPORHOST", "vhost")},
	'X': {bare: `(?P<connection_status>[X+-])`},
}

func prefixed(pattern, prefix string) func(string) string {
	return func(arg string) string {
		if arg == "" {
			return ""
		}
		return capture(pattern, prefix+fieldName(arg))
	}
}

type apacheDirective struct {
	pos         int
	text        string
	conditional bool
	arg         string
	hasArg      bool
	letter      byte
}

// Apache translates an Apache mod_log_config layout into a named-pattern
// expression. Text between directives is matched literally.
func Apache(layout string) (string, error) {
	var b strings.Builder
	literal := 0

	for i := 0; i < len(layout); {
		if layout[i] != '%' {
			i++
			continue
		}
		b.WriteString(regexp.QuoteMeta(layout[literal:i]))

		d, next, err := scanApache(layout, i)
		if err != nil {
			return "", err
		}
		frag, err := d.fragment(layout)
		if err != nil {
			return "", err
		}
		b.WriteString(frag)

		i = next
		literal = next
	}
	b.WriteString(regexp.QuoteMeta(layout[literal:]))

	return uniqueFields(b.String()), nil
}

func scanApache(layout string, pos int) (apacheDirective, int, error) {
	d := apacheDirective{pos: pos}
	j := pos + 1

	if j < len(layout) && layout[j] == '%' {
		d.letter = '%'
		d.text = "%%"
		return d, j + 1, nil
	}

	for j < len(layout) && strings.IndexByte("<>!,0123456789", layout[j]) >= 0 {
		if layout[j] >= '0' && layout[j] <= '9' {
			d.conditional = true
		}
		j++
	}

	if j < len(layout) && layout[j] == '{' {
		end := strings.IndexByte(layout[j:], '}')
		if end < 0 {
			return d, 0, &FormatTranslationError{Layout: layout, Directive: layout[pos:], Position: pos, Reason: "unterminated argument in"}
		}
		d.arg = layout[j+1 : j+end]
		d.hasArg = true
		j += end + 1
	}

	if j >= len(layout) {
		return d, 0, &FormatTranslationError{Layout: layout, Directive: layout[pos:], Position: pos, Reason: "incomplete directive"}
	}
	d.letter = layout[j]
	d.text = layout[pos : j+1]
	return d, j + 1, nil
}

func (d apacheDirective) fragment(layout string) (string, error) {
	if d.letter == '%' {
		return "%", nil
	}

	fail := func(reason string) (string, error) {
		return "", &FormatTranslationError{Layout: layout, Directive: d.text, Position: d.pos, Reason: reason}
	}

	rule, ok := apacheRules[d.letter]
	if !ok {
		return fail("")
	}

	var frag string
	switch {
	case d.hasArg && rule.braced == nil:
		return fail("unexpected argument in")
	case d.hasArg:
		frag = rule.braced(d.arg)
		if frag == "" {
			return fail("unsupported argument in")
		}
	case rule.bare == "":
		return fail("missing argument in")
	default:
		frag = rule.bare
	}

	if d.conditional {
		frag = "(?:" + frag + "|-)"
	}
	return frag, nil
}
