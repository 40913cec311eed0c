package config

import (
	"fmt"
	"strings"
)

// Error codes for categorization.
const (
	ErrCodeConfigNotFound    = "CONFIG_NOT_FOUND"
	ErrCodeConfigParse       = "CONFIG_PARSE"
	ErrCodeConfigInvalid     = "CONFIG_INVALID"
	ErrCodeConfigVersion     = "CONFIG_VERSION"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
)

// UserError is a configuration error with an actionable suggestion.
type UserError struct {
	Code       string // Error code for categorization (e.g., "CONFIG_PARSE")
	Message    string // User-friendly error message
	Context    string // File path or option key
	Suggestion string // Actionable suggestion to fix the error
	Underlying error  // Wrapped error for error chain
}

// Error returns the formatted error message.
func (e *UserError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Context != "" {
		fmt.Fprintf(&b, " (at %s)", e.Context)
	}
	if e.Underlying != nil {
		fmt.Fprintf(&b, ": %v", e.Underlying)
	}
	return b.String()
}

// Unwrap returns the underlying error for error chain support.
func (e *UserError) Unwrap() error {
	return e.Underlying
}

// Is matches another UserError by code.
func (e *UserError) Is(target error) bool {
	if t, ok := target.(*UserError); ok {
		return e.Code == t.Code
	}
	return false
}

// Format returns a multi-line rendering with location and suggestion.
func (e *UserError) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Context != "" {
		fmt.Fprintf(&b, "\n  Location: %s", e.Context)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "\n  Suggestion: %s", e.Suggestion)
	}
	if e.Underlying != nil {
		fmt.Fprintf(&b, "\n  Cause: %s", e.Underlying.Error())
	}
	return b.String()
}

// NewUserError creates a UserError with the given code and message.
func NewUserError(code, message string) *UserError {
	return &UserError{Code: code, Message: message}
}

// WithContext returns a copy with the location set.
func (e *UserError) WithContext(ctx string) *UserError {
	c := *e
	c.Context = ctx
	return &c
}

// WithSuggestion returns a copy with the suggestion set.
func (e *UserError) WithSuggestion(s string) *UserError {
	c := *e
	c.Suggestion = s
	return &c
}

// WithUnderlying returns a copy wrapping err.
func (e *UserError) WithUnderlying(err error) *UserError {
	c := *e
	c.Underlying = err
	return &c
}

// ErrorList accumulates option errors so all of them are reported at once.
type ErrorList struct {
	errors []*UserError
}

// Add appends a non-nil error.
func (l *ErrorList) Add(err *UserError) {
	if err != nil {
		l.errors = append(l.errors, err)
	}
}

// AddInvalid records an invalid option value.
func (l *ErrorList) AddInvalid(key, message string) {
	l.Add(&UserError{
		Code:    ErrCodeConfigInvalid,
		Message: fmt.Sprintf("%s: %s", key, message),
		Context: key,
	})
}

// Len returns the number of errors.
func (l *ErrorList) Len() int {
	return len(l.errors)
}

// Errors returns a copy of the accumulated errors.
func (l *ErrorList) Errors() []*UserError {
	out := make([]*UserError, len(l.errors))
	copy(out, l.errors)
	return out
}

// Error implements error.
func (l *ErrorList) Error() string {
	switch len(l.errors) {
	case 0:
		return ""
	case 1:
		return l.errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d errors occurred:\n", len(l.errors))
	for i, err := range l.errors {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, err.Error())
	}
	return b.String()
}

// AsError returns the list as an error, or nil when empty.
func (l *ErrorList) AsError() error {
	if len(l.errors) == 0 {
		return nil
	}
	return l
}

// NewConfigNotFoundError creates an error for a missing config file.
func NewConfigNotFoundError(path string) *UserError {
	return &UserError{
		Code:       ErrCodeConfigNotFound,
		Message:    "configuration file not found",
		Context:    path,
		Suggestion: "Check the path passed with --config.",
	}
}

// NewConfigParseError creates an error for a file that could not be decoded.
func NewConfigParseError(path string, err error) *UserError {
	return &UserError{
		Code:       ErrCodeConfigParse,
		Message:    "failed to parse configuration file",
		Context:    path,
		Suggestion: "Check the file syntax; vector options are comma separated.",
		Underlying: err,
	}
}

// NewUnsupportedFormatError creates an error for an unknown file extension.
func NewUnsupportedFormatError(path string) *UserError {
	return &UserError{
		Code:       ErrCodeUnsupportedFormat,
		Message:    "unsupported configuration format",
		Context:    path,
		Suggestion: "Use a .ini, .yaml, .yml or .toml file.",
	}
}
