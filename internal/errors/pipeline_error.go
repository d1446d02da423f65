// Package errors provides standardized error types for the no-show pipeline.
// Every stage reports failures as a PipelineError carrying a Kind, so callers
// can tell I/O, parse, value and configuration failures apart with errors.Is.
package errors

import (
	"fmt"
	"strings"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	// KindIO is a missing or unreadable input.
	KindIO Kind = iota + 1
	// KindParse is malformed tabular structure or an unparsable cell.
	KindParse
	// KindValue is a degenerate or invalid value, e.g. a split with a single class.
	KindValue
	// KindConfig is an invalid configuration.
	KindConfig
)

// String returns the taxonomy name of the kind.
func (k Kind) String() string {
	switch k {
	case KindIO:
		return "IOError"
	case KindParse:
		return "ParseError"
	case KindValue:
		return "ValueError"
	case KindConfig:
		return "ConfigError"
	default:
		return "Error"
	}
}

// PipelineError represents standardized errors across all pipeline stages
type PipelineError struct {
	Kind    Kind   // Failure class
	Op      string // Operation name (e.g., "Load", "Clean", "StratifiedSplit")
	Column  string // Column name if applicable
	Row     int    // 1-based input line if applicable, 0 otherwise
	Message string // Human-readable error description
	Cause   error  // Underlying error cause
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	switch {
	case e.Column != "" && e.Row > 0:
		return fmt.Sprintf("%s: %s failed on column '%s' (line %d): %s", e.Kind, e.Op, e.Column, e.Row, e.Message)
	case e.Column != "":
		return fmt.Sprintf("%s: %s failed on column '%s': %s", e.Kind, e.Op, e.Column, e.Message)
	case e.Row > 0:
		return fmt.Sprintf("%s: %s failed (line %d): %s", e.Kind, e.Op, e.Row, e.Message)
	default:
		return fmt.Sprintf("%s: %s failed: %s", e.Kind, e.Op, e.Message)
	}
}

// Unwrap returns the underlying cause for error wrapping support
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Is implements error equality checking for errors.Is().
// A target carrying only a Kind (the Err* sentinels) matches any error of that kind.
func (e *PipelineError) Is(target error) bool {
	t, ok := target.(*PipelineError)
	if !ok {
		return false
	}
	if t.Op == "" && t.Column == "" && t.Message == "" {
		return e.Kind == t.Kind
	}
	return e.Kind == t.Kind && e.Op == t.Op && e.Column == t.Column && e.Message == t.Message
}

// Sentinels for errors.Is matching by kind.
var (
	ErrIO     = &PipelineError{Kind: KindIO}
	ErrParse  = &PipelineError{Kind: KindParse}
	ErrValue  = &PipelineError{Kind: KindValue}
	ErrConfig = &PipelineError{Kind: KindConfig}
)

// NewIOError creates an error for a file that cannot be opened, read or
// written. Export and Write operations report a write failure.
func NewIOError(op, path string, cause error) *PipelineError {
	verb := "read"
	if strings.HasPrefix(op, "Export") || strings.HasPrefix(op, "Write") {
		verb = "write"
	}
	return &PipelineError{
		Kind:    KindIO,
		Op:      op,
		Message: fmt.Sprintf("cannot %s %s", verb, path),
		Cause:   cause,
	}
}

// NewParseError creates an error for malformed input at a given line
func NewParseError(op, column string, row int, message string, cause error) *PipelineError {
	return &PipelineError{
		Kind:    KindParse,
		Op:      op,
		Column:  column,
		Row:     row,
		Message: message,
		Cause:   cause,
	}
}

// NewValueError creates an error for degenerate or invalid values
func NewValueError(op, message string) *PipelineError {
	return &PipelineError{
		Kind:    KindValue,
		Op:      op,
		Message: message,
	}
}

// NewColumnNotFoundError creates an error for operations on non-existent columns
func NewColumnNotFoundError(op, column string) *PipelineError {
	return &PipelineError{
		Kind:    KindValue,
		Op:      op,
		Column:  column,
		Message: "column does not exist",
	}
}

// NewValidationError creates an error for input validation failures
func NewValidationError(op, column, message string) *PipelineError {
	return &PipelineError{
		Kind:    KindValue,
		Op:      op,
		Column:  column,
		Message: message,
	}
}

// NewConfigError creates an error for an invalid configuration field
func NewConfigError(field, message string) *PipelineError {
	return &PipelineError{
		Kind:    KindConfig,
		Op:      "config",
		Column:  field,
		Message: message,
	}
}

// NewInternalError creates an error for internal operation failures
func NewInternalError(op string, cause error) *PipelineError {
	return &PipelineError{
		Kind:    KindValue,
		Op:      op,
		Message: "internal error occurred",
		Cause:   cause,
	}
}
