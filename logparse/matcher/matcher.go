// SPDX-License-Identifier: MIT

// Package matcher filters parsed records on the value of a field.
package matcher

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kolapsis/logparse/logparse/parser"
)

// Condition tests one field. Exactly one of Equals, In, Regex or Contains
// should be set; when several are, the first in that order wins.
type Condition struct {
	Field    string   `yaml:"field"`
	Equals   string   `yaml:"equals,omitempty"`
	In       []string `yaml:"in,omitempty"`
	Regex    string   `yaml:"regex,omitempty"`
	Contains string   `yaml:"contains,omitempty"`
}

// ParseCondition parses the command-line form of a condition:
//
//	field=value      equals
//	field@=a,b,c     in
//	field~=regex     regex
//	field*=text      contains
func ParseCondition(s string) (Condition, error) {
	i := strings.IndexByte(s, '=')
	if i <= 0 {
		return Condition{}, fmt.Errorf("condition %q: expected field=value", s)
	}

	field, value := s[:i], s[i+1:]
	switch field[len(field)-1] {
	case '@':
		return Condition{Field: field[:len(field)-1], In: strings.Split(value, ",")}, nil
	case '~':
		return Condition{Field: field[:len(field)-1], Regex: value}, nil
	case '*':
		return Condition{Field: field[:len(field)-1], Contains: value}, nil
	}
	return Condition{Field: field, Equals: value}, nil
}

type check struct {
	field    string
	equals   string
	in       map[string]struct{}
	regex    *regexp.Regexp
	contains string
}

// Matcher checks records against a set of conditions, all of which must
// hold. A Matcher with no conditions matches every record.
type Matcher struct {
	checks []check
}

// New creates a Matcher from conditions.
func New(conditions ...Condition) (*Matcher, error) {
	m := &Matcher{}

	for _, c := range conditions {
		if c.Field == "" {
			return nil, fmt.Errorf("condition without field")
		}

		ch := check{
			field:    c.Field,
			equals:   c.Equals,
			contains: c.Contains,
		}

		if len(c.In) > 0 {
			ch.in = make(map[string]struct{}, len(c.In))
			for _, v := range c.In {
				ch.in[v] = struct{}{}
			}
		}

		if c.Regex != "" {
			re, err := regexp.Compile(c.Regex)
			if err != nil {
				return nil, fmt.Errorf("condition on %s: %w", c.Field, err)
			}
			ch.regex = re
		}

		m.checks = append(m.checks, ch)
	}

	return m, nil
}

// Match reports whether the record's fields satisfy every condition.
func (m *Matcher) Match(rec *parser.Record) bool {
	if rec == nil {
		return m.AlwaysMatches()
	}
	return m.MatchFields(rec.Fields)
}

// MatchFields reports whether fields satisfy every condition.
func (m *Matcher) MatchFields(fields map[string]any) bool {
	for _, ch := range m.checks {
		if !ch.match(fields) {
			return false
		}
	}
	return true
}

func (ch check) match(fields map[string]any) bool {
	val, ok := parser.GetFieldString(fields, ch.field)
	if !ok {
		return false
	}

	switch {
	case ch.equals != "":
		return val == ch.equals
	case ch.in != nil:
		_, exists := ch.in[val]
		return exists
	case ch.regex != nil:
		return ch.regex.MatchString(val)
	case ch.contains != "":
		return strings.Contains(val, ch.contains)
	}
	return false
}

// Fields returns the field paths the matcher checks.
func (m *Matcher) Fields() []string {
	fields := make([]string, len(m.checks))
	for i, ch := range m.checks {
		fields[i] = ch.field
	}
	return fields
}

// AlwaysMatches returns true if this matcher has no conditions.
func (m *Matcher) AlwaysMatches() bool {
	return len(m.checks) == 0
}
