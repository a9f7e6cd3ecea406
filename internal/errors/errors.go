// Package errors provides a lightweight structured error type (RsbuildError)
// for category-based classification in the build pipeline and CLI.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory represents the category of an Rsbuild error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Plugin pipeline errors
	CategoryPlugin ErrorCategory = "plugin"
	CategoryHook   ErrorCategory = "hook"

	// Build and output errors
	CategoryBundler    ErrorCategory = "bundler"
	CategorySyntax     ErrorCategory = "syntax"
	CategoryFileSystem ErrorCategory = "filesystem"

	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// RsbuildError is a structured error with category, severity, and context
type RsbuildError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for RsbuildError
type ContextFields map[string]any

// Error implements the error interface
func (e *RsbuildError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *RsbuildError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *RsbuildError) WithContext(key string, value any) *RsbuildError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new RsbuildError
func New(category ErrorCategory, severity ErrorSeverity, message string) *RsbuildError {
	return &RsbuildError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new RsbuildError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *RsbuildError {
	return &RsbuildError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// As finds the first RsbuildError in err's chain.
func As(err error) (*RsbuildError, bool) {
	var re *RsbuildError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if re, ok := As(err); ok {
		return re.Category == category
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not an RsbuildError
func GetCategory(err error) ErrorCategory {
	if re, ok := As(err); ok {
		return re.Category
	}
	return CategoryInternal
}

// IsFatal reports whether err carries fatal severity.
func IsFatal(err error) bool {
	if re, ok := As(err); ok {
		return re.Severity == SeverityFatal
	}
	return false
}
