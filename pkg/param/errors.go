package param

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation is the common sentinel matched by both type-conversion
// and disallowed-value failures, so callers can catch either with a
// single errors.Is check.
var ErrValidation = errors.New("parameter validation failed")

// UnknownParameterError reports a lookup for a name or bind name that
// was never registered.
type UnknownParameterError struct {
	Name string
}

func (e *UnknownParameterError) Error() string {
	return fmt.Sprintf("unknown parameter %q", e.Name)
}

// DuplicateNameError reports a registration collision on name or bind name.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("parameter %q is already registered", e.Name)
}

// InvalidDefaultError reports a declared default that failed type or
// allowed-value validation at registration time.
type InvalidDefaultError struct {
	Name string
	Err  error
}

func (e *InvalidDefaultError) Error() string {
	return fmt.Sprintf("invalid default for parameter %q: %v", e.Name, e.Err)
}

func (e *InvalidDefaultError) Unwrap() error { return e.Err }

// TypeConversionError reports a raw value that could not be coerced to
// the parameter's declared type.
type TypeConversionError struct {
	Name string
	Type Type
	Raw  any
}

func (e *TypeConversionError) Error() string {
	return fmt.Sprintf("parameter %q: cannot convert %v to %s", e.Name, e.Raw, e.Type)
}

func (e *TypeConversionError) Unwrap() error { return ErrValidation }

// DisallowedValueError reports a value outside the declared allowed set.
type DisallowedValueError struct {
	Name    string
	Value   any
	Allowed []string
}

func (e *DisallowedValueError) Error() string {
	return fmt.Sprintf(
		"parameter %q: value %v is not allowed (permitted: %s)",
		e.Name, e.Value, strings.Join(e.Allowed, ", "),
	)
}

func (e *DisallowedValueError) Unwrap() error { return ErrValidation }

// ImmutableParameterError reports a mutation attempted after the
// write-once lock engaged.
type ImmutableParameterError struct {
	Name string
}

func (e *ImmutableParameterError) Error() string {
	return fmt.Sprintf("parameter %q is immutable and already set", e.Name)
}

// SwitchConflictError reports a rejected assignment because another
// member of the same switch group is active.
type SwitchConflictError struct {
	Name     string
	Group    string
	Conflict string
}

func (e *SwitchConflictError) Error() string {
	return fmt.Sprintf(
		"parameter %q conflicts with %q in switch group %q",
		e.Name, e.Conflict, e.Group,
	)
}

// UnsupportedJoinError reports accumulation attempted on a type that
// does not define it.
type UnsupportedJoinError struct {
	Name string
	Type Type
}

func (e *UnsupportedJoinError) Error() string {
	return fmt.Sprintf("parameter %q: join is not supported for %s parameters", e.Name, e.Type)
}

// PromptValidationExhaustedError reports that solicited input failed
// validation more times than the retry budget allows.
type PromptValidationExhaustedError struct {
	Name     string
	Attempts int
	Err      error
}

func (e *PromptValidationExhaustedError) Error() string {
	return fmt.Sprintf(
		"parameter %q: prompt input failed validation after %d attempts: %v",
		e.Name, e.Attempts, e.Err,
	)
}

func (e *PromptValidationExhaustedError) Unwrap() error { return e.Err }
