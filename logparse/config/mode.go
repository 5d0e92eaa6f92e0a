// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"strings"
)

// LogMode selects the log format a factory builds parsers for.
type LogMode int

const (
	CommonLogFormat LogMode = iota + 1
	CombinedLogFormat
	ApacheCustomLogFormat
	ApacheErrorLogFormat
	Regex
	Grok
	Log4j
)

var logModeNames = map[LogMode]string{
	CommonLogFormat:       "COMMON_LOG_FORMAT",
	CombinedLogFormat:     "COMBINED_LOG_FORMAT",
	ApacheCustomLogFormat: "APACHE_CUSTOM_LOG_FORMAT",
	ApacheErrorLogFormat:  "APACHE_ERROR_LOG_FORMAT",
	Regex:                 "REGEX",
	Grok:                  "GROK",
	Log4j:                 "LOG4J",
}

// LogModes lists every supported mode in declaration order.
func LogModes() []LogMode {
	return []LogMode{
		CommonLogFormat,
		CombinedLogFormat,
		ApacheCustomLogFormat,
		ApacheErrorLogFormat,
		Regex,
		Grok,
		Log4j,
	}
}

func (m LogMode) String() string {
	if name, ok := logModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("LogMode(%d)", int(m))
}

// Valid reports whether m is one of the declared modes.
func (m LogMode) Valid() bool {
	_, ok := logModeNames[m]
	return ok
}

// ParseLogMode parses a mode name. Matching is case-insensitive and
// accepts '-' in place of '_'.
func ParseLogMode(s string) (LogMode, error) {
	name := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for mode, n := range logModeNames {
		if n == name {
			return mode, nil
		}
	}
	return 0, &ConfigurationError{Key: "mode", Value: s, Reason: "unknown log mode"}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *LogMode) UnmarshalText(text []byte) error {
	mode, err := ParseLogMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (m LogMode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, &InternalError{What: m.String()}
	}
	return []byte(m.String()), nil
}

// OnParseError is the policy applied to lines the pattern does not match.
type OnParseError int

const (
	OnErrorFail OnParseError = iota + 1
	OnErrorIgnore
	OnErrorIncludeAsStackTrace
)

var onParseErrorNames = map[OnParseError]string{
	OnErrorFail:                "ERROR",
	OnErrorIgnore:              "IGNORE",
	OnErrorIncludeAsStackTrace: "INCLUDE_AS_STACK_TRACE",
}

func (p OnParseError) String() string {
	if name, ok := onParseErrorNames[p]; ok {
		return name
	}
	return fmt.Sprintf("OnParseError(%d)", int(p))
}

// ParseOnParseError parses a policy name, case-insensitively.
func ParseOnParseError(s string) (OnParseError, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for p, n := range onParseErrorNames {
		if n == name {
			return p, nil
		}
	}
	return 0, &ConfigurationError{Key: KeyOnParseError, Value: s, Reason: "must be ERROR, IGNORE or INCLUDE_AS_STACK_TRACE"}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *OnParseError) UnmarshalText(text []byte) error {
	v, err := ParseOnParseError(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
