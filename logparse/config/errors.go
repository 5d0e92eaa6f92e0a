// SPDX-License-Identifier: MIT

package config

import "fmt"

// ConfigurationError reports an invalid, missing or out-of-range value.
type ConfigurationError struct {
	Key    string
	Value  any
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("config %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config %s=%v: %s", e.Key, e.Value, e.Reason)
}

// InternalError reports a value that should be impossible to construct,
// such as an undeclared enum member.
type InternalError struct {
	What string
}

func (e *InternalError) Error() string {
	return "internal error: unexpected " + e.What
}
