package errors

import (
	"errors"
	"fmt"
)

// Code identifies an error category used across the validation and
// optimization pipelines.
type Code string

const (
	// CodeDataShape indicates a group row count that does not form whole cycles
	// (not a multiple of the cycle length, or not exactly the cycle length in
	// strict mode).
	CodeDataShape Code = "DATA_SHAPE"
	// CodeMissingExpectations indicates a task absent from the range table.
	// Callers skip the task with a warning; this is never fatal.
	CodeMissingExpectations Code = "MISSING_EXPECTATIONS"
	// CodeMissingFeature indicates a feature with no accumulated data during
	// optimization. Callers skip the feature and return a partial mapping.
	CodeMissingFeature Code = "MISSING_FEATURE"
	// CodeMalformedInput indicates an unreadable or structurally broken input
	// file. Fatal for the affected dataset only.
	CodeMalformedInput Code = "MALFORMED_INPUT"
)

// Error is a coded domain error carried across package boundaries.
type Error struct {
	Code    Code        `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a coded error with the given message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewWithDetails creates a coded error carrying structured details.
func NewWithDetails(code Code, message string, details interface{}) *Error {
	return &Error{Code: code, Message: message, Details: details}
}

// Wrap creates a coded error wrapping an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// IsCode reports whether err (or anything it wraps) carries the given code.
func IsCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// DataShape creates a DATA_SHAPE error for a (subject, task, step) group whose
// row count cannot form whole cycles.
func DataShape(subject, task string, step, actual, expected int) *Error {
	return NewWithDetails(CodeDataShape,
		fmt.Sprintf("group (%s, %s, %d) has %d rows, expected %d", subject, task, step, actual, expected),
		map[string]interface{}{
			"subject":  subject,
			"task":     task,
			"step":     step,
			"actual":   actual,
			"expected": expected,
		})
}

// MissingExpectations creates a MISSING_EXPECTATIONS error for a task absent
// from the range table.
func MissingExpectations(task string) *Error {
	return New(CodeMissingExpectations, fmt.Sprintf("no expected ranges defined for task %q", task))
}

// MissingFeature creates a MISSING_FEATURE error for a feature with no
// accumulated data.
func MissingFeature(feature string) *Error {
	return New(CodeMissingFeature, fmt.Sprintf("no accumulated data for feature %q", feature))
}

// MalformedInput creates a MALFORMED_INPUT error wrapping the load failure.
func MalformedInput(path string, cause error) *Error {
	return Wrap(CodeMalformedInput, fmt.Sprintf("cannot read dataset %s", path), cause)
}
