// Package errors provides structured error types for the layout engine.
//
// A layout invocation either succeeds or fails with exactly one *Error whose
// Code tells the caller which class of failure occurred:
//   - INVALID_TOPOLOGY: the input graph is malformed (self-containing
//     clusters, negative weights, unknown endpoints). Reported before any
//     algorithm runs.
//   - INFEASIBLE_CONSTRAINTS: the rank constraint graph contains a cycle.
//     This cannot happen after acyclification and indicates a bug.
//   - NUMERIC_OVERFLOW: attribute or coordinate magnitudes exceed the
//     supported range.
//   - DEGENERATE_GEOMETRY: an edge route could not be kept inside its
//     channel. This is logged and counted, never returned from a layout.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidTopology, "cluster %q contains itself", name)
//	if errors.Is(err, errors.ErrCodeInvalidTopology) {
//	    // reject input
//	}
//
//	err := errors.Wrap(errors.ErrCodeInvalidInput, origErr, "parse %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidTopology Code = "INVALID_TOPOLOGY"
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"
	ErrCodeInvalidFormat   Code = "INVALID_FORMAT"
	ErrCodeNotFound        Code = "NOT_FOUND"

	// Layout failures
	ErrCodeInfeasible         Code = "INFEASIBLE_CONSTRAINTS"
	ErrCodeNumericOverflow    Code = "NUMERIC_OVERFLOW"
	ErrCodeDegenerateGeometry Code = "DEGENERATE_GEOMETRY"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Ensure wraps err with code unless it already carries a code, in which case
// it is returned unchanged. Nil stays nil.
func Ensure(code Code, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if GetCode(err) != "" {
		return err
	}
	return Wrap(code, err, format, args...)
}

// ExitCode maps an error to a process exit status for command-line drivers.
func ExitCode(err error) int {
	switch GetCode(err) {
	case "":
		if err == nil {
			return 0
		}
		return 1
	case ErrCodeInvalidInput, ErrCodeInvalidFormat, ErrCodeInvalidConfig, ErrCodeNotFound:
		return 2
	case ErrCodeInvalidTopology:
		return 3
	case ErrCodeNumericOverflow:
		return 4
	default:
		return 1
	}
}
