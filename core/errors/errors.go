// Package errors provides the error taxonomy shared by the corpus loader,
// the query layer and the presentation layers.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrAlreadyExists indicates a resource already exists
	ErrAlreadyExists = errors.New("already exists")
	// ErrUnsupported indicates an unsupported operation or format
	ErrUnsupported = errors.New("unsupported")
)

// NotFoundError represents a resource not found error with context
type NotFoundError struct {
	Resource string // Type of resource (e.g., "surah", "ayah", "source")
	ID       string // Identifier of the resource
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string // Field name that failed validation
	Value   string // Value that failed validation
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "open")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ParseError represents a parsing error outside of markup streams,
// such as a malformed reference or configuration file.
type ParseError struct {
	Format  string // Format being parsed (e.g., "reference", "config")
	Path    string // File path, if applicable
	Message string // Error details
	Err     error  // Underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to parse %s at %s: %s", e.Format, e.Path, e.Message)
	}
	return fmt.Sprintf("failed to parse %s: %s", e.Format, e.Message)
}

func (e *ParseError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// UnsupportedError represents an unsupported feature or format
type UnsupportedError struct {
	Feature string // Feature or format that is unsupported
	Reason  string // Why it's not supported
	Err     error  // Underlying error, if any
}

func (e *UnsupportedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported %s: %s", e.Feature, e.Reason)
	}
	return fmt.Sprintf("unsupported %s", e.Feature)
}

func (e *UnsupportedError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrUnsupported
}

// MarkupStreamError reports a malformed markup stream. Loading of the
// stream stops at the error; records built before it are kept.
type MarkupStreamError struct {
	Source string // Source name or path
	Line   int    // 1-based line of the failure, 0 if unknown
	Column int    // 1-based column of the failure, 0 if unknown
	Err    error  // Underlying decoder error
}

func (e *MarkupStreamError) Error() string {
	var b strings.Builder
	b.WriteString("malformed markup")
	if e.Source != "" {
		b.WriteString(" in ")
		b.WriteString(e.Source)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d, column %d", e.Line, e.Column)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *MarkupStreamError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// Is reports ErrInvalidInput so callers can classify stream failures
// without unwrapping the decoder error.
func (e *MarkupStreamError) Is(target error) bool {
	return target == ErrInvalidInput
}

// IncompleteRecordError is returned when a record is finalized before all
// of its required fields were set.
type IncompleteRecordError struct {
	Record  string   // Record kind (e.g., "ayah")
	Index   int      // Position of the record in its source (1-based)
	Missing []string // Names of the fields that were never set
}

func (e *IncompleteRecordError) Error() string {
	return fmt.Sprintf("incomplete %s record #%d: missing %s",
		e.Record, e.Index, strings.Join(e.Missing, ", "))
}

func (e *IncompleteRecordError) Unwrap() error {
	return ErrInvalidInput
}

// DuplicateRecordError is returned when a record's key was already taken.
type DuplicateRecordError struct {
	Record string // Record kind
	Key    string // Composite key, e.g. "2:255"
}

func (e *DuplicateRecordError) Error() string {
	return fmt.Sprintf("duplicate %s record: %s", e.Record, e.Key)
}

func (e *DuplicateRecordError) Unwrap() error {
	return ErrAlreadyExists
}

// PageImageNotFoundError is returned when a page image cannot be opened.
// It is recoverable and reported to the caller.
type PageImageNotFoundError struct {
	Page int    // Logical page number
	Path string // Resolved file path
	Err  error  // Underlying error, if any
}

func (e *PageImageNotFoundError) Error() string {
	return fmt.Sprintf("page image %d not found at %s", e.Page, e.Path)
}

func (e *PageImageNotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// Is matches ErrNotFound even when Err carries an OS error.
func (e *PageImageNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Helper functions for creating common errors

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// NewValidation creates a ValidationError
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// NewParse creates a ParseError
func NewParse(format, path, message string) *ParseError {
	return &ParseError{
		Format:  format,
		Path:    path,
		Message: message,
	}
}

// NewUnsupported creates an UnsupportedError
func NewUnsupported(feature, reason string) *UnsupportedError {
	return &UnsupportedError{
		Feature: feature,
		Reason:  reason,
	}
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}
