// SPDX-License-Identifier: MIT

// Package config builds the immutable parser-factory configuration from a
// flat key/value mapping or a YAML file.
package config

import (
	"fmt"
	"maps"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// Configuration keys.
const (
	KeyRetainOriginalText    = "log.retain.original.text"
	KeyApacheCustomLogFormat = "log.apache.custom.log.format"
	KeyRegex                 = "log.regex"
	KeyRegexFieldPathToGroup = "log.regex.fieldPath.to.group.name"
	KeyGrokPattern           = "log.grok.pattern"
	KeyGrokPatternDefinition = "log.grok.pattern.definition"
	KeyLog4jFormat           = "log4j.custom.log.format"
	KeyOnParseError          = "log.on.parse.error"
	KeyTrimStackTrace        = "log.log4j.trim.stack.trace.to.length"
	KeyMaxLineLength         = "log.max.line.length"

	// keyLog4jFormatAlias is the prefixed spelling older configurations use.
	keyLog4jFormatAlias = "log.log4j.custom.log.format"
)

// Defaults.
const (
	DefaultApacheCustomLogFormat = `%h %l %u %t "%r" %>s %b`
	DefaultRegex                 = `^(\S+) (\S+) (\S+) \[([\w:/]+\s[+\-]\d{4})\] "(\S+) (\S+) (\S+)" (\d{3}) (\d+)`
	DefaultGrokPattern           = "%{COMMONAPACHELOG}"
	DefaultLog4jFormat           = "%d{ISO8601} %-5p %c{1} - %m"
	DefaultOnParseError          = OnErrorFail
	DefaultTrimStackTrace        = 50
	DefaultMaxLineLength         = 1024 * 1024
)

// FactoryConfig is a read-only snapshot of every setting a parser factory
// needs. Build it with Default, FromMap, Parse or Load.
type FactoryConfig struct {
	retainOriginalText    bool
	apacheCustomLogFormat string
	regex                 string
	fieldPathToGroup      map[string]int
	grokPattern           string
	grokPatternDefinition string
	log4jFormat           string
	onParseError          OnParseError
	trimStackTrace        int
	maxLineLength         int
}

// Default returns the configuration with every key at its default.
func Default() *FactoryConfig {
	return &FactoryConfig{
		apacheCustomLogFormat: DefaultApacheCustomLogFormat,
		regex:                 DefaultRegex,
		fieldPathToGroup:      map[string]int{},
		grokPattern:           DefaultGrokPattern,
		log4jFormat:           DefaultLog4jFormat,
		onParseError:          DefaultOnParseError,
		trimStackTrace:        DefaultTrimStackTrace,
		maxLineLength:         DefaultMaxLineLength,
	}
}

// FromMap builds a configuration from a flat key/value mapping. Missing keys
// take their defaults. Keys outside the log. and log4j. namespaces are
// ignored; unknown keys inside them are rejected.
func FromMap(values map[string]any) (*FactoryConfig, error) {
	cfg := Default()

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := cfg.set(key, values[key]); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *FactoryConfig) set(key string, raw any) error {
	var err error
	switch key {
	case KeyRetainOriginalText:
		c.retainOriginalText, err = cast.ToBoolE(raw)
	case KeyApacheCustomLogFormat:
		c.apacheCustomLogFormat, err = cast.ToStringE(raw)
	case KeyRegex:
		c.regex, err = cast.ToStringE(raw)
	case KeyRegexFieldPathToGroup:
		c.fieldPathToGroup, err = toGroupMapping(raw)
	case KeyGrokPattern:
		c.grokPattern, err = cast.ToStringE(raw)
	case KeyGrokPatternDefinition:
		c.grokPatternDefinition, err = cast.ToStringE(raw)
	case KeyLog4jFormat, keyLog4jFormatAlias:
		c.log4jFormat, err = cast.ToStringE(raw)
	case KeyOnParseError:
		var s string
		if s, err = cast.ToStringE(raw); err == nil {
			c.onParseError, err = ParseOnParseError(s)
		}
	case KeyTrimStackTrace:
		c.trimStackTrace, err = cast.ToIntE(raw)
	case KeyMaxLineLength:
		c.maxLineLength, err = cast.ToIntE(raw)
	default:
		if strings.HasPrefix(key, "log.") || strings.HasPrefix(key, "log4j.") {
			return &ConfigurationError{Key: key, Reason: "unknown key"}
		}
		return nil
	}

	if err != nil {
		if _, ok := err.(*ConfigurationError); ok {
			return err
		}
		return &ConfigurationError{Key: key, Value: raw, Reason: err.Error()}
	}
	return nil
}

func toGroupMapping(raw any) (map[string]int, error) {
	if raw == nil {
		return map[string]int{}, nil
	}
	if m, ok := raw.(map[string]int); ok {
		return maps.Clone(m), nil
	}

	generic, err := cast.ToStringMapE(raw)
	if err != nil {
		return nil, err
	}

	out := make(map[string]int, len(generic))
	for path, v := range generic {
		group, err := cast.ToIntE(v)
		if err != nil {
			return nil, fmt.Errorf("group for %q: %w", path, err)
		}
		out[path] = group
	}
	return out, nil
}

// Validate checks value ranges that do not depend on the log mode.
func (c *FactoryConfig) Validate() error {
	for path, group := range c.fieldPathToGroup {
		if path == "" {
			return &ConfigurationError{Key: KeyRegexFieldPathToGroup, Reason: "empty field path"}
		}
		if group < 1 {
			return &ConfigurationError{Key: KeyRegexFieldPathToGroup, Value: fmt.Sprintf("%s:%d", path, group), Reason: "capture group must be 1 or greater"}
		}
	}

	if c.trimStackTrace < 0 {
		return &ConfigurationError{Key: KeyTrimStackTrace, Value: c.trimStackTrace, Reason: "must not be negative"}
	}

	if c.maxLineLength < 1 {
		return &ConfigurationError{Key: KeyMaxLineLength, Value: c.maxLineLength, Reason: "must be positive"}
	}

	return nil
}

// Load reads a YAML file of flat configuration keys.
func Load(path string) (*FactoryConfig, error) {
	values, err := LoadValues(path)
	if err != nil {
		return nil, err
	}

	return FromMap(values)
}

// Parse builds a configuration from YAML data holding flat keys, e.g.
//
//	log.on.parse.error: INCLUDE_AS_STACK_TRACE
//	log.log4j.trim.stack.trace.to.length: 20
func Parse(data []byte) (*FactoryConfig, error) {
	values, err := ParseValues(data)
	if err != nil {
		return nil, err
	}

	return FromMap(values)
}

// LoadValues reads a YAML file into the flat mapping FromMap expects,
// without validating it. Callers may add overrides before building.
func LoadValues(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return ParseValues(data)
}

// ParseValues decodes YAML data into a flat mapping. Empty data yields an
// empty mapping.
func ParseValues(data []byte) (map[string]any, error) {
	values := map[string]any{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if values == nil {
		values = map[string]any{}
	}
	return values, nil
}

// RetainOriginalText reports whether records keep the raw source text.
func (c *FactoryConfig) RetainOriginalText() bool { return c.retainOriginalText }

// ApacheCustomLogFormat is the Apache layout translated in custom mode.
func (c *FactoryConfig) ApacheCustomLogFormat() string { return c.apacheCustomLogFormat }

// Regex is the regular expression used in REGEX mode.
func (c *FactoryConfig) Regex() string { return c.regex }

// FieldPathToGroup returns a copy of the field path to capture group table.
func (c *FactoryConfig) FieldPathToGroup() map[string]int { return maps.Clone(c.fieldPathToGroup) }

// GrokPattern is the named-pattern expression used in GROK mode.
func (c *FactoryConfig) GrokPattern() string { return c.grokPattern }

// GrokPatternDefinition holds inline pattern definitions, one per line.
func (c *FactoryConfig) GrokPatternDefinition() string { return c.grokPatternDefinition }

// Log4jFormat is the log4j conversion pattern translated in LOG4J mode.
func (c *FactoryConfig) Log4jFormat() string { return c.log4jFormat }

// OnParseError is the configured error policy.
func (c *FactoryConfig) OnParseError() OnParseError { return c.onParseError }

// TrimStackTrace is the most continuation lines kept per record.
func (c *FactoryConfig) TrimStackTrace() int { return c.trimStackTrace }

// MaxLineLength is the longest line, in bytes, kept before truncation.
func (c *FactoryConfig) MaxLineLength() int { return c.maxLineLength }

// LineBudget resolves the error policy against the trim length.
func (c *FactoryConfig) LineBudget() (int, error) {
	return ResolveLineBudget(c.onParseError, c.trimStackTrace)
}

// Map returns the effective configuration keyed like FromMap expects.
func (c *FactoryConfig) Map() map[string]any {
	return map[string]any{
		KeyRetainOriginalText:    c.retainOriginalText,
		KeyApacheCustomLogFormat: c.apacheCustomLogFormat,
		KeyRegex:                 c.regex,
		KeyRegexFieldPathToGroup: c.FieldPathToGroup(),
		KeyGrokPattern:           c.grokPattern,
		KeyGrokPatternDefinition: c.grokPatternDefinition,
		KeyLog4jFormat:           c.log4jFormat,
		KeyOnParseError:          c.onParseError.String(),
		KeyTrimStackTrace:        c.trimStackTrace,
		KeyMaxLineLength:         c.maxLineLength,
	}
}
