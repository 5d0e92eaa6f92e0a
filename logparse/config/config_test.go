// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.RetainOriginalText() {
		t.Error("RetainOriginalText() = true, want false")
	}
	if cfg.ApacheCustomLogFormat() != `%h %l %u %t "%r" %>s %b` {
		t.Errorf("ApacheCustomLogFormat() = %q", cfg.ApacheCustomLogFormat())
	}
	if cfg.GrokPattern() != "%{COMMONAPACHELOG}" {
		t.Errorf("GrokPattern() = %q", cfg.GrokPattern())
	}
	if cfg.Log4jFormat() != "%d{ISO8601} %-5p %c{1} - %m" {
		t.Errorf("Log4jFormat() = %q", cfg.Log4jFormat())
	}
	if cfg.OnParseError() != OnErrorFail {
		t.Errorf("OnParseError() = %v, want ERROR", cfg.OnParseError())
	}
	if cfg.TrimStackTrace() != 50 {
		t.Errorf("TrimStackTrace() = %d, want 50", cfg.TrimStackTrace())
	}
	if len(cfg.FieldPathToGroup()) != 0 {
		t.Errorf("FieldPathToGroup() = %v, want empty", cfg.FieldPathToGroup())
	}
	if cfg.GrokPatternDefinition() != "" {
		t.Errorf("GrokPatternDefinition() = %q, want empty", cfg.GrokPatternDefinition())
	}
}

func TestFromMap_Overrides(t *testing.T) {
	cfg, err := FromMap(map[string]any{
		KeyRetainOriginalText:    "true",
		KeyRegexFieldPathToGroup: map[string]any{"ip": 1, "/http/status": "8"},
		KeyOnParseError:          "include_as_stack_trace",
		KeyTrimStackTrace:        "20",
		KeyLog4jFormat:           "%p %m",
		"pipeline.batch.size":    1000,
	})
	if err != nil {
		t.Fatalf("FromMap() error = %v", err)
	}

	if !cfg.RetainOriginalText() {
		t.Error("RetainOriginalText() = false, want true")
	}
	groups := cfg.FieldPathToGroup()
	if groups["ip"] != 1 || groups["/http/status"] != 8 {
		t.Errorf("FieldPathToGroup() = %v", groups)
	}
	if cfg.OnParseError() != OnErrorIncludeAsStackTrace {
		t.Errorf("OnParseError() = %v", cfg.OnParseError())
	}
	if cfg.TrimStackTrace() != 20 {
		t.Errorf("TrimStackTrace() = %d, want 20", cfg.TrimStackTrace())
	}
	if cfg.Log4jFormat() != "%p %m" {
		t.Errorf("Log4jFormat() = %q", cfg.Log4jFormat())
	}
}

func TestFromMap_Log4jAlias(t *testing.T) {
	cfg, err := FromMap(map[string]any{"log.log4j.custom.log.format": "%m"})
	if err != nil {
		t.Fatalf("FromMap() error = %v", err)
	}
	if cfg.Log4jFormat() != "%m" {
		t.Errorf("Log4jFormat() = %q, want %%m", cfg.Log4jFormat())
	}
}

func TestFromMap_FieldPathMappingIsCopied(t *testing.T) {
	in := map[string]int{"ip": 1}
	cfg, err := FromMap(map[string]any{KeyRegexFieldPathToGroup: in})
	if err != nil {
		t.Fatalf("FromMap() error = %v", err)
	}

	in["ip"] = 5
	got := cfg.FieldPathToGroup()
	got["status"] = 8

	if g := cfg.FieldPathToGroup(); g["ip"] != 1 || len(g) != 1 {
		t.Errorf("FieldPathToGroup() = %v, want map[ip:1]", g)
	}
}

func TestFromMap_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
		key    string
	}{
		{"negative trim", map[string]any{KeyTrimStackTrace: -1}, KeyTrimStackTrace},
		{"trim not a number", map[string]any{KeyTrimStackTrace: "lots"}, KeyTrimStackTrace},
		{"unknown policy", map[string]any{KeyOnParseError: "RETRY"}, KeyOnParseError},
		{"group zero", map[string]any{KeyRegexFieldPathToGroup: map[string]any{"all": 0}}, KeyRegexFieldPathToGroup},
		{"empty path", map[string]any{KeyRegexFieldPathToGroup: map[string]any{"": 1}}, KeyRegexFieldPathToGroup},
		{"bad retain", map[string]any{KeyRetainOriginalText: "maybe"}, KeyRetainOriginalText},
		{"zero line length", map[string]any{KeyMaxLineLength: 0}, KeyMaxLineLength},
		{"unknown log key", map[string]any{"log.regexp": "x"}, "log.regexp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromMap(tt.values)
			if err == nil {
				t.Fatal("FromMap() error = nil, want ConfigurationError")
			}
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("FromMap() error = %T, want *ConfigurationError", err)
			}
			if cfgErr.Key != tt.key {
				t.Errorf("ConfigurationError.Key = %q, want %q", cfgErr.Key, tt.key)
			}
		})
	}
}

func TestParse_YAML(t *testing.T) {
	yaml := `
log.retain.original.text: true
log.on.parse.error: INCLUDE_AS_STACK_TRACE
log.log4j.trim.stack.trace.to.length: 5
log.regex.fieldPath.to.group.name:
  ip: 1
  status: 8
`

	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !cfg.RetainOriginalText() {
		t.Error("RetainOriginalText() = false, want true")
	}
	budget, err := cfg.LineBudget()
	if err != nil {
		t.Fatalf("LineBudget() error = %v", err)
	}
	if budget != 5 {
		t.Errorf("LineBudget() = %d, want 5", budget)
	}
	if g := cfg.FieldPathToGroup(); g["ip"] != 1 || g["status"] != 8 {
		t.Errorf("FieldPathToGroup() = %v", g)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("log.regex: [unterminated"))
	if err == nil {
		t.Fatal("Parse() should return error for invalid YAML")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logparse.yaml")
	if err := os.WriteFile(path, []byte("log.grok.pattern: '%{WORD:word}'\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.GrokPattern() != "%{WORD:word}" {
		t.Errorf("GrokPattern() = %q", cfg.GrokPattern())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/logparse.yaml"); err == nil {
		t.Error("Load() should return error for missing file")
	}
}

func TestLoadValues_Overrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logparse.yaml")
	content := "log.on.parse.error: SOMETIMES\nlog.log4j.trim.stack.trace.to.length: 20\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	// Values are not validated until FromMap, so an override can repair them.
	values, err := LoadValues(path)
	if err != nil {
		t.Fatalf("LoadValues() error = %v", err)
	}
	if values[KeyOnParseError] != "SOMETIMES" {
		t.Errorf("values[%q] = %v", KeyOnParseError, values[KeyOnParseError])
	}

	values[KeyOnParseError] = "INCLUDE_AS_STACK_TRACE"
	cfg, err := FromMap(values)
	if err != nil {
		t.Fatalf("FromMap() error = %v", err)
	}
	if budget, _ := cfg.LineBudget(); budget != 20 {
		t.Errorf("LineBudget() = %d, want 20", budget)
	}
}

func TestParseValues_Empty(t *testing.T) {
	for _, data := range []string{"", "null\n", "# nothing\n"} {
		values, err := ParseValues([]byte(data))
		if err != nil {
			t.Fatalf("ParseValues(%q) error = %v", data, err)
		}
		if values == nil || len(values) != 0 {
			t.Errorf("ParseValues(%q) = %v, want empty map", data, values)
		}
	}
}

func TestLoadValues_MissingFile(t *testing.T) {
	if _, err := LoadValues("/nonexistent/logparse.yaml"); err == nil {
		t.Error("LoadValues() should return error for missing file")
	}
}

func TestMap_RoundTrip(t *testing.T) {
	cfg, err := FromMap(map[string]any{KeyOnParseError: "IGNORE", KeyRegexFieldPathToGroup: map[string]int{"ip": 1}})
	if err != nil {
		t.Fatalf("FromMap() error = %v", err)
	}

	again, err := FromMap(cfg.Map())
	if err != nil {
		t.Fatalf("FromMap(Map()) error = %v", err)
	}
	if again.OnParseError() != OnErrorIgnore {
		t.Errorf("OnParseError() = %v, want IGNORE", again.OnParseError())
	}
	if again.FieldPathToGroup()["ip"] != 1 {
		t.Errorf("FieldPathToGroup() = %v", again.FieldPathToGroup())
	}
}
