package state

import (
	"errors"
	"fmt"
)

// ConfigError reports a malformed state definition. It is fatal at load time:
// NewTable refuses to build a table from an invalid definition.
type ConfigError struct {
	// Variable is the offending variable name (may be empty for list-level errors).
	Variable string

	// Message is a human-readable description.
	Message string
}

func (e *ConfigError) Error() string {
	if e.Variable != "" {
		return fmt.Sprintf("CONFIG_ERROR: %s: %s", e.Variable, e.Message)
	}
	return fmt.Sprintf("CONFIG_ERROR: %s", e.Message)
}

// UnknownVariableError reports a delta or lookup naming a variable that is
// not part of the table's definition set.
type UnknownVariableError struct {
	Variable string
}

func (e *UnknownVariableError) Error() string {
	return fmt.Sprintf("UNKNOWN_VARIABLE: %q is not a defined variable", e.Variable)
}

// IsConfigError returns true if err is or wraps a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsUnknownVariable returns true if err is or wraps an UnknownVariableError.
func IsUnknownVariable(err error) bool {
	var ue *UnknownVariableError
	return errors.As(err, &ue)
}
