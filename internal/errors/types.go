// Package errors defines the structured error taxonomy used across docsman.
//
// Request-scoped failures (path escape, not found, render) are turned into
// HTTP responses at the server boundary. Infrastructure failures (watch setup,
// config) terminate the process. Send failures never leave the registry.
package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypePathEscape ErrorType = "path_escape"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeRender     ErrorType = "render"
	ErrorTypeIndexScan  ErrorType = "index_scan"
	ErrorTypeWatchSetup ErrorType = "watch_setup"
	ErrorTypeSend       ErrorType = "send"
	ErrorTypeConfig     ErrorType = "config"
)

// DocsError is a structured error type with context.
type DocsError struct {
	Type    ErrorType
	Code    string
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *DocsError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *DocsError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a DocsError of the same type. An empty target
// code matches any code of that type.
func (e *DocsError) Is(target error) bool {
	var t *DocsError
	if !errors.As(target, &t) {
		return false
	}

	if e.Type != t.Type {
		return false
	}

	return t.Code == "" || e.Code == t.Code
}

// WithContext adds context information to the error.
func (e *DocsError) WithContext(key string, value interface{}) *DocsError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// Sentinels for errors.Is checks against a whole category.
var (
	ErrPathEscape = &DocsError{Type: ErrorTypePathEscape}
	ErrNotFound   = &DocsError{Type: ErrorTypeNotFound}
	ErrRender     = &DocsError{Type: ErrorTypeRender}
	ErrIndexScan  = &DocsError{Type: ErrorTypeIndexScan}
	ErrWatchSetup = &DocsError{Type: ErrorTypeWatchSetup}
	ErrSend       = &DocsError{Type: ErrorTypeSend}
	ErrConfig     = &DocsError{Type: ErrorTypeConfig}
)

// NewPathEscapeError creates an error for a request that does not resolve to
// a location inside the sandbox root.
func NewPathEscapeError(code, message string, cause error) *DocsError {
	return &DocsError{
		Type:    ErrorTypePathEscape,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewNotFoundError creates an error for a missing or unreadable file.
func NewNotFoundError(code, message string, cause error) *DocsError {
	return &DocsError{
		Type:    ErrorTypeNotFound,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewRenderError creates a Markdown conversion error.
func NewRenderError(code, message string, cause error) *DocsError {
	return &DocsError{
		Type:    ErrorTypeRender,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewIndexScanError creates an error for an unreadable legend root.
func NewIndexScanError(code, message string, cause error) *DocsError {
	return &DocsError{
		Type:    ErrorTypeIndexScan,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewWatchSetupError creates an error for a watcher that cannot observe the root.
func NewWatchSetupError(code, message string, cause error) *DocsError {
	return &DocsError{
		Type:    ErrorTypeWatchSetup,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewSendError creates a per-connection send error.
func NewSendError(code, message string, cause error) *DocsError {
	return &DocsError{
		Type:    ErrorTypeSend,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *DocsError {
	return &DocsError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
	}
}

// TypeOf returns the ErrorType of the first DocsError in err's chain, or an
// empty type when there is none.
func TypeOf(err error) ErrorType {
	var de *DocsError
	if errors.As(err, &de) {
		return de.Type
	}

	return ""
}

// IsPathEscape checks if an error is a sandbox escape.
func IsPathEscape(err error) bool {
	return TypeOf(err) == ErrorTypePathEscape
}

// IsNotFound checks if an error is a missing file.
func IsNotFound(err error) bool {
	return TypeOf(err) == ErrorTypeNotFound
}

// IsRender checks if an error is a Markdown conversion failure.
func IsRender(err error) bool {
	return TypeOf(err) == ErrorTypeRender
}

// HTTPStatus maps an error to the status code used for request-scoped failures.
// A path that failed canonicalization because it does not exist is reported as
// not found; traversal is rejected before the filesystem is consulted, so this
// only ever describes names inside the sandbox.
func HTTPStatus(err error) int {
	switch TypeOf(err) {
	case ErrorTypePathEscape:
		if errors.Is(err, fs.ErrNotExist) {
			return http.StatusNotFound
		}
		return http.StatusForbidden
	case ErrorTypeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns a message safe to show to a browser. It never
// includes the error's cause, which may carry absolute filesystem paths.
func PublicMessage(err error) string {
	switch HTTPStatus(err) {
	case http.StatusForbidden:
		return "Forbidden"
	case http.StatusNotFound:
		return "Not Found"
	}

	switch TypeOf(err) {
	case ErrorTypeRender:
		return "Failed to render document"
	default:
		return "Internal Server Error"
	}
}
