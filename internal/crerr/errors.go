// Package crerr defines the error taxonomy shared by the repository core.
//
// Every failure surfaced by the mapper, the query layer and the storage
// backends is an *Error carrying a Code. Callers match on the code either with
// errors.Is against the sentinels below or with the IsXxx helpers, both of
// which see through fmt.Errorf("...: %w") wrapping.
//
// None of these errors is retried by the core. A failure while mapping one node
// aborts the whole batch.
package crerr

import (
	"errors"
	"fmt"
)

// Code categorizes repository errors.
type Code string

const (
	// CodeInvalidArgument indicates bad caller input.
	CodeInvalidArgument Code = "INVALID_ARGUMENT"

	// CodeNotFound indicates a missing identity map entry or node.
	CodeNotFound Code = "NOT_FOUND"

	// CodeDuplicateIdentifier indicates an identifier registered twice with different objects.
	CodeDuplicateIdentifier Code = "DUPLICATE_IDENTIFIER"

	// CodeSchemaViolation indicates stored nodes that contradict the class schema.
	CodeSchemaViolation Code = "SCHEMA_VIOLATION"

	// CodeUnsupportedType indicates a storage type outside the recognized set.
	CodeUnsupportedType Code = "UNSUPPORTED_TYPE"

	// CodeNotSupported indicates an operation that is intentionally unimplemented.
	CodeNotSupported Code = "NOT_SUPPORTED"

	// CodeDepthExceeded indicates runaway recursion while materializing nodes.
	CodeDepthExceeded Code = "DEPTH_EXCEEDED"
)

// Error is a repository error with a machine readable code.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Details contains additional context such as identifiers or type names.
	Details map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is an *Error with the same code. This makes the
// sentinels usable with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is matching. They carry no message of their own.
var (
	ErrInvalidArgument     = &Error{Code: CodeInvalidArgument}
	ErrNotFound            = &Error{Code: CodeNotFound}
	ErrDuplicateIdentifier = &Error{Code: CodeDuplicateIdentifier}
	ErrSchemaViolation     = &Error{Code: CodeSchemaViolation}
	ErrUnsupportedType     = &Error{Code: CodeUnsupportedType}
	ErrNotSupported        = &Error{Code: CodeNotSupported}
	ErrDepthExceeded       = &Error{Code: CodeDepthExceeded}
)

// New creates an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithDetail returns e with an additional detail entry. It mutates e.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// InvalidArgument creates a CodeInvalidArgument error.
func InvalidArgument(format string, args ...any) *Error {
	return New(CodeInvalidArgument, format, args...)
}

// NotFound creates a CodeNotFound error for the given identifier.
func NotFound(identifier string) *Error {
	return New(CodeNotFound, "no entry for identifier %q", identifier).WithDetail("identifier", identifier)
}

// NotSupported creates a CodeNotSupported error for the named operation.
func NotSupported(operation string) *Error {
	return New(CodeNotSupported, "%s is not supported", operation).WithDetail("operation", operation)
}

// UnsupportedType creates a CodeUnsupportedType error naming the offending type.
func UnsupportedType(typeName, reason string) *Error {
	return New(CodeUnsupportedType, "type %s %s", typeName, reason).WithDetail("type", typeName)
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsInvalidArgument returns true if err is a CodeInvalidArgument error.
func IsInvalidArgument(err error) bool { return CodeOf(err) == CodeInvalidArgument }

// IsNotFound returns true if err is a CodeNotFound error.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

// IsDuplicateIdentifier returns true if err is a CodeDuplicateIdentifier error.
func IsDuplicateIdentifier(err error) bool { return CodeOf(err) == CodeDuplicateIdentifier }

// IsSchemaViolation returns true if err is a CodeSchemaViolation error.
func IsSchemaViolation(err error) bool { return CodeOf(err) == CodeSchemaViolation }

// IsUnsupportedType returns true if err is a CodeUnsupportedType error.
func IsUnsupportedType(err error) bool { return CodeOf(err) == CodeUnsupportedType }

// IsNotSupported returns true if err is a CodeNotSupported error.
func IsNotSupported(err error) bool { return CodeOf(err) == CodeNotSupported }

// IsDepthExceeded returns true if err is a CodeDepthExceeded error.
func IsDepthExceeded(err error) bool { return CodeOf(err) == CodeDepthExceeded }
