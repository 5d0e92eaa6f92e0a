// SPDX-License-Identifier: MIT

// Package grok compiles named-pattern expressions such as
// "%{IPORHOST:clientip} %{GREEDYDATA:message}" against layered pattern
// dictionaries.
package grok

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/trivago/grok"
)

// reference matches %{NAME}, %{NAME:field} and %{NAME:field:type}.
var reference = regexp.MustCompile(`%\{(\w+)(?::(\w+)(?::(\w+))?)?\}`)

// Pattern is a compiled named-pattern expression. It is safe for concurrent
// use.
type Pattern struct {
	expression string
	compiled   *grok.CompiledGrok
}

// Expression returns the source the pattern was compiled from.
func (p *Pattern) Expression() string {
	return p.expression
}

// Match reports whether line matches and returns the non-empty captures.
func (p *Pattern) Match(line string) (map[string]string, bool) {
	fields := p.compiled.ParseString(line)
	if len(fields) == 0 {
		return nil, false
	}
	for name, value := range fields {
		if value == "" {
			delete(fields, name)
		}
	}
	return fields, true
}

// Compiler loads dictionaries from a Provider and compiles expressions.
// Loaded dictionaries are kept for the life of the Compiler.
type Compiler struct {
	provider Provider

	mu     sync.Mutex
	loaded map[string]Definitions
}

// NewCompiler creates a Compiler reading dictionaries from provider, or from
// the built-in dictionaries when provider is nil.
func NewCompiler(provider Provider) *Compiler {
	if provider == nil {
		provider = Builtin()
	}
	return &Compiler{
		provider: provider,
		loaded:   make(map[string]Definitions),
	}
}

// Definitions returns the merged namespace for the base dictionaries, the
// named auxiliary dictionaries and the inline definitions, in that order.
func (c *Compiler) Definitions(dictionaries []string, inline string) (Definitions, error) {
	names := append([]string{BaseDictionary, JavaDictionary}, dictionaries...)
	layers := make([]Definitions, 0, len(names)+1)

	for _, name := range names {
		defs, err := c.load(name)
		if err != nil {
			return nil, err
		}
		layers = append(layers, defs)
	}

	if strings.TrimSpace(inline) != "" {
		defs, err := ParseDefinitions(strings.NewReader(inline), InlineDictionary)
		if err != nil {
			return nil, err
		}
		layers = append(layers, defs)
	}

	return Merge(layers...), nil
}

func (c *Compiler) load(name string) (Definitions, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if defs, ok := c.loaded[name]; ok {
		return defs, nil
	}

	f, err := c.provider.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening dictionary %q: %w", name, err)
	}
	defer f.Close()

	defs, err := ParseDefinitions(f, name)
	if err != nil {
		return nil, err
	}
	c.loaded[name] = defs
	return defs, nil
}

// Compile resolves expression against the merged dictionaries and compiles
// it. Every definition in the namespace must resolve, not only those the
// expression uses.
func (c *Compiler) Compile(expression string, dictionaries []string, inline string) (*Pattern, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, errors.New("empty expression")
	}

	defs, err := c.Definitions(dictionaries, inline)
	if err != nil {
		return nil, err
	}

	if err := Resolve(expression, defs); err != nil {
		return nil, err
	}

	g, err := grok.New(grok.Config{
		Patterns:            defs,
		SkipDefaultPatterns: true,
		NamedCapturesOnly:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("loading definitions: %w", err)
	}

	compiled, err := g.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("compiling %q: %w", expression, err)
	}

	return &Pattern{expression: expression, compiled: compiled}, nil
}

const (
	unvisited = iota
	visiting
	resolved
)

type resolver struct {
	defs     Definitions
	state    map[string]int
	captures map[string]bool
	stack    []string
}

// Resolve checks that every reference in expression and in defs names a
// definition, that no definitions reference each other in a loop, and that
// expression yields at least one named capture.
func Resolve(expression string, defs Definitions) error {
	r := &resolver{
		defs:     defs,
		state:    make(map[string]int, len(defs)),
		captures: make(map[string]bool, len(defs)),
	}

	captures, err := r.refs(expression, "")
	if err != nil {
		return err
	}

	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := r.visit(name, ""); err != nil {
			return err
		}
	}

	if !captures {
		return ErrNoCaptures
	}
	return nil
}

// refs visits each reference in expr and reports whether expr captures.
func (r *resolver) refs(expr, referrer string) (bool, error) {
	captures := strings.Contains(expr, "(?P<")
	for _, m := range reference.FindAllStringSubmatch(expr, -1) {
		if err := r.visit(m[1], referrer); err != nil {
			return false, err
		}
		if m[2] != "" || r.captures[m[1]] {
			captures = true
		}
	}
	return captures, nil
}

func (r *resolver) visit(name, referrer string) error {
	expr, ok := r.defs[name]
	if !ok {
		return &UndefinedPatternError{Name: name, Referrer: referrer}
	}

	switch r.state[name] {
	case resolved:
		return nil
	case visiting:
		start := slices.Index(r.stack, name)
		path := append(slices.Clone(r.stack[start:]), name)
		return &CyclicPatternError{Path: path}
	}

	r.state[name] = visiting
	r.stack = append(r.stack, name)

	captures, err := r.refs(expr, name)
	if err != nil {
		return err
	}

	r.stack = r.stack[:len(r.stack)-1]
	r.state[name] = resolved
	r.captures[name] = captures
	return nil
}
