package expr

import (
	"errors"
	"fmt"
)

// ParseError reports a string that does not match the expression grammar.
type ParseError struct {
	Input   string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("PARSE_ERROR: %q: %s", e.Input, e.Message)
}

// UnknownEntityError reports a reference to an entity with no registered table.
type UnknownEntityError struct {
	Entity string
}

func (e *UnknownEntityError) Error() string {
	return fmt.Sprintf("UNKNOWN_ENTITY: no state table registered for %q", e.Entity)
}

// DivisionByZeroError reports a "/= 0" effect. The effect is skipped.
type DivisionByZeroError struct {
	Input string
}

func (e *DivisionByZeroError) Error() string {
	return fmt.Sprintf("DIVISION_BY_ZERO: %q", e.Input)
}

// IsParseError returns true if err is or wraps a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsUnknownEntity returns true if err is or wraps an UnknownEntityError.
func IsUnknownEntity(err error) bool {
	var ue *UnknownEntityError
	return errors.As(err, &ue)
}

// IsDivisionByZero returns true if err is or wraps a DivisionByZeroError.
func IsDivisionByZero(err error) bool {
	var de *DivisionByZeroError
	return errors.As(err, &de)
}
