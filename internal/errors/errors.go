// Package errors provides structured error types for reflbase.
// Every failure carries a category and a code so that callers can branch
// on error kind instead of matching message text.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by system component.
type ErrorCategory string

const (
	ErrCategorySpec    ErrorCategory = "SPEC"
	ErrCategoryInput   ErrorCategory = "INPUT"
	ErrCategoryConvert ErrorCategory = "CONVERT"
	ErrCategoryWrite   ErrorCategory = "WRITE"
	ErrCategoryStorage ErrorCategory = "STORAGE"
	ErrCategoryReport  ErrorCategory = "REPORT"
)

// Error codes for each category.
const (
	// Spec codes
	CodeSpecSyntax = "SPEC_SYNTAX"

	// Input codes
	CodeBlockNotFound = "BLOCK_NOT_FOUND"
	CodeNoReflLoop    = "NO_REFLECTION_LOOP"
	CodeMalformedLoop = "MALFORMED_LOOP"

	// Convert codes
	CodeMissingIndexColumn = "MISSING_INDEX_COLUMN"
	CodeBadIndexValue      = "BAD_INDEX_VALUE"

	// Write codes
	CodeWriteFailed = "WRITE_FAILED"

	// Storage codes
	CodeUploadFailed   = "UPLOAD_FAILED"
	CodeDownloadFailed = "DOWNLOAD_FAILED"
	CodeObjectNotFound = "OBJECT_NOT_FOUND"

	// Report codes
	CodeCatalogOpen  = "CATALOG_OPEN_FAILED"
	CodeCatalogWrite = "CATALOG_WRITE_FAILED"
)

// ReflError is the structured error type used throughout the system.
type ReflError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Details  map[string]interface{}
	Cause    error
}

// Error returns a formatted error string.
func (e *ReflError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *ReflError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *ReflError) Is(target error) bool {
	var t *ReflError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new ReflError.
func New(category ErrorCategory, code, message string) *ReflError {
	return &ReflError{Category: category, Code: code, Message: message}
}

// Wrap creates a new ReflError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *ReflError {
	return &ReflError{Category: category, Code: code, Message: message, Cause: cause}
}

// WithDetails returns a copy of the error with additional details.
func (e *ReflError) WithDetails(details map[string]interface{}) *ReflError {
	cp := *e
	cp.Details = details
	return &cp
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a ReflError.
func GetCategory(err error) ErrorCategory {
	var re *ReflError
	if errors.As(err, &re) {
		return re.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a ReflError.
func GetCode(err error) string {
	var re *ReflError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsSpecError reports whether the error chain contains a spec-level error.
// Spec errors abort the whole run before any conversion is attempted.
func IsSpecError(err error) bool {
	return GetCategory(err) == ErrCategorySpec
}

// Convenience constructors for common errors.

func NewSpecError(line int, text, message string) *ReflError {
	e := New(ErrCategorySpec, CodeSpecSyntax, message)
	e.Details = map[string]interface{}{"line": line, "text": text}
	return e
}

func NewInputError(code, message string) *ReflError {
	return New(ErrCategoryInput, code, message)
}

func NewConvertError(code, message string) *ReflError {
	return New(ErrCategoryConvert, code, message)
}

func NewWriteError(message string, cause error) *ReflError {
	return Wrap(ErrCategoryWrite, CodeWriteFailed, message, cause)
}

func NewReportError(code, message string, cause error) *ReflError {
	return Wrap(ErrCategoryReport, code, message, cause)
}
