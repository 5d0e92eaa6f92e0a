// SPDX-License-Identifier: MIT

package translate

import (
	"regexp"
	"sort"
	"strings"
)

// log4jRule describes how one log4j conversion word translates. arg is the
// content of the first {} option following the word, if any.
type log4jRule func(arg string, hasArg bool) (string, error)

func fixed(frag string) log4jRule {
	return func(string, bool) (string, error) { return frag, nil }
}

var (
	logger   = fixed(capture("JAVACLASS", "logger"))
	class    = fixed(capture("JAVACLASS", "class"))
	file     = fixed(capture("JAVAFILE", "file"))
	location = fixed(capture("LOG4J_LOCATION", "location"))
	line     = fixed(capture("INT", "line"))
	message  = fixed(capture("GREEDYDATA", "message"))
	method   = fixed(capture("JAVAMETHOD", "method"))
	level    = fixed(capture("LOGLEVEL", "level"))
	relative = fixed(capture("INT", "relativetime"))
	thread   = fixed(capture("DATA", "thread"))
	ndc      = fixed(capture("DATA", "ndc"))
)

func mdc(arg string, hasArg bool) (string, error) {
	if !hasArg || arg == "" {
		return capture("DATA", "mdc"), nil
	}
	return capture("DATA", "mdc_"+fieldName(arg)), nil
}

// log4jDates maps the named date formats to dictionary patterns.
var log4jDates = map[string]string{
	"":              "TIMESTAMP_ISO8601",
	"ISO8601":       "TIMESTAMP_ISO8601",
	"DEFAULT":       "TIMESTAMP_ISO8601",
	"ABSOLUTE":      "LOG4J_ABSOLUTE",
	"DATE":          "LOG4J_DATE",
	"COMPACT":       "LOG4J_COMPACT",
	"ISO8601_BASIC": "LOG4J_ISO8601_BASIC",
	"UNIX":          "LOG4J_UNIX",
	"UNIX_MILLIS":   "LOG4J_UNIX_MILLIS",
}

func date(arg string, _ bool) (string, error) {
	if pattern, ok := log4jDates[arg]; ok {
		return capture(pattern, "timestamp"), nil
	}
	re, err := DateFormat(arg)
	if err != nil {
		return "", err
	}
	return "(?P<timestamp>" + re + ")", nil
}

var log4jRules = map[string]log4jRule{
	"c": logger, "logger": logger,
	"C": class, "class": class,
	"d": date, "date": date,
	"F": file, "file": file,
	"l": location, "location": location,
	"L": line, "line": line,
	"m": message, "msg": message, "message": message,
	"M": method, "method": method,
	"n": fixed(""),
	"p": level, "level": level,
	"r": relative, "relative": relative,
	"t": thread, "thread": thread, "tn": thread, "threadName": thread,
	"x": ndc, "NDC": ndc,
	"X": mdc, "MDC": mdc, "mdc": mdc,
}

// log4jUnsupported lists log4j 2 converters with no translation. They are
// rejected instead of being read as a shorter word followed by literal text.
var log4jUnsupported = map[string]bool{
	"enc": true, "encode": true, "equals": true, "equalsIgnoreCase": true,
	"ex": true, "exception": true, "throwable": true,
	"rEx": true, "rException": true, "rThrowable": true,
	"xEx": true, "xException": true, "xThrowable": true,
	"highlight": true, "style": true,
	"K": true, "map": true, "MAP": true,
	"marker": true, "markerSimpleName": true,
	"maxLen": true, "maxLength": true,
	"N": true, "nano": true,
	"notEmpty": true, "varsNotEmpty": true, "variablesNotEmpty": true,
	"pid": true, "processId": true,
	"replace": true,
	"sn": true, "sequenceNumber": true,
	"T": true, "tid": true, "threadId": true,
	"tp": true, "threadPriority": true,
	"fqcn": true, "endOfBatch": true,
	"u": true, "uuid": true,
}

// log4jWords lists the conversion words longest first.
var log4jWords = func() []string {
	words := make([]string, 0, len(log4jRules))
	for w := range log4jRules {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if len(words[i]) != len(words[j]) {
			return len(words[i]) > len(words[j])
		}
		return words[i] < words[j]
	})
	return words
}()

type log4jDirective struct {
	pos       int
	text      string
	leftAlign bool
	padded    bool
	word      string
	arg       string
	hasArg    bool
}

// Log4j translates a log4j PatternLayout conversion pattern into a
// named-pattern expression. Conversion words may be abbreviated letters or
// log4j 2 long names; a minimum width allows space padding around the value.
func Log4j(layout string) (string, error) {
	var b strings.Builder
	literal := 0

	for i := 0; i < len(layout); {
		if layout[i] != '%' {
			i++
			continue
		}
		b.WriteString(regexp.QuoteMeta(layout[literal:i]))

		if i+1 < len(layout) && layout[i+1] == '%' {
			b.WriteString("%")
			i += 2
			literal = i
			continue
		}

		d, next, err := scanLog4j(layout, i)
		if err != nil {
			return "", err
		}
		frag, err := log4jRules[d.word](d.arg, d.hasArg)
		if err != nil {
			return "", &FormatTranslationError{Layout: layout, Directive: d.text, Position: d.pos, Reason: "invalid option in", Err: err}
		}

		if d.padded && frag != "" {
			if d.leftAlign {
				frag += " *"
			} else {
				frag = " *" + frag
			}
		}
		b.WriteString(frag)

		i = next
		literal = next
	}
	b.WriteString(regexp.QuoteMeta(layout[literal:]))

	return uniqueFields(b.String()), nil
}

func scanLog4j(layout string, pos int) (log4jDirective, int, error) {
	d := log4jDirective{pos: pos}
	j := pos + 1

	if j < len(layout) && layout[j] == '-' {
		d.leftAlign = true
		j++
	}
	for j < len(layout) && layout[j] >= '0' && layout[j] <= '9' {
		d.padded = true
		j++
	}
	if j < len(layout) && layout[j] == '.' {
		j++
		for j < len(layout) && layout[j] >= '0' && layout[j] <= '9' {
			j++
		}
	}

	if j >= len(layout) {
		return d, 0, &FormatTranslationError{Layout: layout, Directive: layout[pos:], Position: pos, Reason: "incomplete directive"}
	}

	run := j
	for run < len(layout) && isLetter(layout[run]) {
		run++
	}
	word := layout[j:run]

	switch {
	case log4jRules[word] != nil:
		d.word = word
	case log4jUnsupported[word]:
		return d, 0, &FormatTranslationError{Layout: layout, Directive: layout[pos:run], Position: pos, Reason: "unsupported converter"}
	default:
		// A known word directly followed by literal letters, as in %nEND.
		for _, w := range log4jWords {
			if strings.HasPrefix(word, w) {
				d.word = w
				break
			}
		}
	}
	if d.word == "" {
		return d, 0, &FormatTranslationError{Layout: layout, Directive: layout[pos : j+1], Position: pos}
	}
	j += len(d.word)

	// Options follow the word; only the first one is used.
	for first := true; j < len(layout) && layout[j] == '{'; first = false {
		end := strings.IndexByte(layout[j:], '}')
		if end < 0 {
			return d, 0, &FormatTranslationError{Layout: layout, Directive: layout[pos:], Position: pos, Reason: "unterminated option in"}
		}
		if first {
			d.arg = layout[j+1 : j+end]
			d.hasArg = true
		}
		j += end + 1
	}

	d.text = layout[pos:j]
	return d, j, nil
}
