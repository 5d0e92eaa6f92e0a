// SPDX-License-Identifier: MIT

package parser

import (
	"strings"

	"github.com/spf13/cast"
)

// SplitPath splits a field path into its segments. A path starting with "/"
// uses "/" as separator ("/http/status"), any other path uses "."
// ("http.status").
func SplitPath(path string) []string {
	if strings.HasPrefix(path, "/") {
		return strings.Split(path[1:], "/")
	}
	return strings.Split(path, ".")
}

// SetField stores value at path, creating intermediate maps as needed. A
// non-map value in the way is replaced.
func SetField(data map[string]any, path string, value any) {
	parts := SplitPath(path)
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

// GetField extracts a field from parsed data. Supports nested fields like
// "http.status" or "/http/status".
func GetField(data map[string]any, field string) (any, bool) {
	if data == nil || field == "" {
		return nil, false
	}

	var current any = data
	for _, part := range SplitPath(field) {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// GetFieldString extracts a scalar field as a string.
func GetFieldString(data map[string]any, field string) (string, bool) {
	val, ok := GetField(data, field)
	if !ok {
		return "", false
	}

	s, err := cast.ToStringE(val)
	if err != nil {
		return "", false
	}
	return s, true
}

// GetFieldFloat extracts a numeric field, parsing strings when needed.
func GetFieldFloat(data map[string]any, field string) (float64, bool) {
	val, ok := GetField(data, field)
	if !ok {
		return 0, false
	}
	if _, isBool := val.(bool); isBool {
		return 0, false
	}

	f, err := cast.ToFloat64E(val)
	if err != nil {
		return 0, false
	}
	return f, true
}
