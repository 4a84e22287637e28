// Package errors provides centralized error handling with component and
// category metadata attached to every error that crosses a service boundary.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"time"
)

// ErrorCategory represents the type of error for better categorization
type ErrorCategory string

const (
	CategoryValidation      ErrorCategory = "validation"
	CategoryConfiguration   ErrorCategory = "configuration"
	CategoryNetwork         ErrorCategory = "network"
	CategoryHTTP            ErrorCategory = "http-request"
	CategoryResponseParsing ErrorCategory = "response-parsing"
	CategoryFileIO          ErrorCategory = "file-io"
	CategoryImageSave       ErrorCategory = "image-save"
	CategoryImageFetch      ErrorCategory = "image-fetch"
	CategoryMQTTConnection  ErrorCategory = "mqtt-connection"
	CategoryMQTTPublish     ErrorCategory = "mqtt-publish"
	CategoryState           ErrorCategory = "state"
	CategoryTimeout         ErrorCategory = "timeout"
	CategoryCancellation    ErrorCategory = "cancellation"
	CategoryGeneric         ErrorCategory = "generic"
)

// ComponentUnknown is used when the component was not set by the builder.
const ComponentUnknown = "unknown"

// EnhancedError wraps an error with component, category and free-form context.
type EnhancedError struct {
	Err       error
	Component string
	Category  ErrorCategory
	Context   map[string]any
	Timestamp time.Time
}

// Error implements the error interface
func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

// Unwrap implements the error unwrapping interface
func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is matches either the wrapped error chain or, for another EnhancedError,
// the category. This lets callers test errors.Is(err, kind) with a kind
// constructed via NewKind.
func (ee *EnhancedError) Is(target error) bool {
	if ee2, ok := target.(*EnhancedError); ok {
		return ee.Category == ee2.Category
	}
	return stderrors.Is(ee.Err, target)
}

// GetContext returns a copy of the context map, never nil.
func (ee *EnhancedError) GetContext() map[string]any {
	out := make(map[string]any, len(ee.Context))
	maps.Copy(out, ee.Context)
	return out
}

// ErrorBuilder provides a fluent interface for constructing EnhancedErrors.
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New creates an ErrorBuilder wrapping an existing error.
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{
		err:      err,
		category: CategoryGeneric,
	}
}

// Newf creates an ErrorBuilder from a formatted message.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component sets the component where the error occurred.
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

// Category sets the error category.
func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Context adds a key-value pair to the error context.
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// NetworkContext records the URL and timeout of a failed network operation.
func (eb *ErrorBuilder) NetworkContext(url string, timeout time.Duration) *ErrorBuilder {
	return eb.Context("url", url).Context("timeout_seconds", timeout.Seconds())
}

// FileContext records the path and size of a failed file operation.
func (eb *ErrorBuilder) FileContext(filePath string, fileSize int64) *ErrorBuilder {
	return eb.Context("file_path", filePath).Context("file_size_bytes", fileSize)
}

// Build constructs the final EnhancedError.
func (eb *ErrorBuilder) Build() *EnhancedError {
	component := eb.component
	if component == "" {
		component = ComponentUnknown
	}
	return &EnhancedError{
		Err:       eb.err,
		Component: component,
		Category:  eb.category,
		Context:   eb.context,
		Timestamp: time.Now(),
	}
}

// NewKind returns a category-only EnhancedError for use as an errors.Is target.
func NewKind(category ErrorCategory) *EnhancedError {
	return &EnhancedError{Err: stderrors.New(string(category)), Category: category}
}

// NewStd creates a plain standard error without enhancement.
func NewStd(text string) error {
	return stderrors.New(text)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Unwrap returns the result of calling Unwrap on err.
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}

// Join wraps the standard errors.Join.
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

// IsCategory checks whether err carries the given category anywhere in its chain.
func IsCategory(err error, category ErrorCategory) bool {
	var ee *EnhancedError
	if As(err, &ee) {
		return ee.Category == category
	}
	return false
}
