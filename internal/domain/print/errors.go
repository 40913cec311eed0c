package print

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for print operations.
const (
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeEmptyPrint       = "EMPTY_PRINT"
	ErrCodeSlicingFailed    = "SLICING_FAILED"
	ErrCodeNotProcessed     = "NOT_PROCESSED"
)

// ErrNotProcessed is wrapped by Export when a step the output needs is not done.
var ErrNotProcessed = errors.New("print is not processed")

// Error is a print failure with an actionable suggestion.
type Error struct {
	Code       string // Error code for categorization
	Message    string // User-friendly error message
	Object     string // Object name if applicable
	Step       string // Pipeline step if applicable
	Suggestion string // Actionable suggestion to fix the error
	Underlying error  // Wrapped error for error chain
}

// Error returns the formatted error message.
func (e *Error) Error() string {
	var parts []string
	if e.Object != "" {
		parts = append(parts, fmt.Sprintf("object %q", e.Object))
	}
	if e.Step != "" {
		parts = append(parts, fmt.Sprintf("step %q", e.Step))
	}
	msg := e.Message
	if len(parts) > 0 {
		msg = fmt.Sprintf("%s: %s", strings.Join(parts, ", "), msg)
	}
	if e.Underlying != nil {
		msg += ": " + e.Underlying.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain support.
func (e *Error) Unwrap() error {
	return e.Underlying
}

// Is matches another *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Format returns a fully formatted error with all details.
func (e *Error) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Object != "" {
		fmt.Fprintf(&b, "\n  Object: %s", e.Object)
	}
	if e.Step != "" {
		fmt.Fprintf(&b, "\n  Step: %s", e.Step)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "\n  Suggestion: %s", e.Suggestion)
	}
	if e.Underlying != nil {
		fmt.Fprintf(&b, "\n  Cause: %s", e.Underlying)
	}
	return b.String()
}

func newValidationError(msg string) *Error {
	return &Error{Code: ErrCodeValidationFailed, Message: msg}
}

func newEmptyPrintError() *Error {
	return &Error{
		Code:       ErrCodeEmptyPrint,
		Message:    "the print is empty",
		Suggestion: "The model is not printable with the current print settings.",
	}
}

func newSlicingError(object, step string, err error) *Error {
	return &Error{
		Code:       ErrCodeSlicingFailed,
		Message:    "slicing failed",
		Object:     object,
		Step:       step,
		Underlying: err,
	}
}

func newNotProcessedError(step string) *Error {
	return &Error{
		Code:       ErrCodeNotProcessed,
		Message:    "the print is not processed",
		Step:       step,
		Suggestion: "Run Process before exporting.",
		Underlying: ErrNotProcessed,
	}
}

// Sentinel targets for errors.Is.
var (
	ErrValidationFailed = &Error{Code: ErrCodeValidationFailed}
	ErrEmptyPrint       = &Error{Code: ErrCodeEmptyPrint}
	ErrSlicingFailed    = &Error{Code: ErrCodeSlicingFailed}
)
