// Package queryerr defines the error taxonomy shared by every stage of query
// evaluation.
//
// All errors surfaced to callers of the engine are *Error values carrying a
// stable Code plus a human-readable message. Store access failures are
// wrapped with fmt.Errorf and keep their original cause; they have no Code.
package queryerr

import (
	"errors"
	"fmt"
)

// Code categorizes query errors.
type Code string

const (
	// CodeValidation indicates a malformed or contradictory query shape,
	// detected before any store access.
	CodeValidation Code = "VALIDATION"

	// CodeUnsupportedFeature indicates a query shape that is understood but
	// deliberately not implemented (OR conditions, non-MAX aggregates, ...).
	CodeUnsupportedFeature Code = "UNSUPPORTED_FEATURE"

	// CodeNotFound indicates a referenced element, attribute or relation is
	// absent from the meta-model.
	CodeNotFound Code = "NOT_FOUND"

	// CodeTypeMismatch indicates a datatype the operator or comparator in
	// play cannot handle.
	CodeTypeMismatch Code = "TYPE_MISMATCH"

	// CodeInvariant indicates model or data corruption, e.g. a to-one
	// relation yielding several related instances.
	CodeInvariant Code = "INVARIANT"

	// CodeBadParameter indicates a query that is well formed but lacks a
	// parameter a stage needs (e.g. the id column of a joined element).
	CodeBadParameter Code = "BAD_PARAMETER"
)

// Error is the structured error returned by query evaluation.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Element names the element involved, if any.
	Element string

	// Column names the attribute or relation involved, if any.
	Column string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Element != "" && e.Column != "":
		return fmt.Sprintf("%s: %s (element=%s, column=%s)", e.Code, e.Message, e.Element, e.Column)
	case e.Element != "":
		return fmt.Sprintf("%s: %s (element=%s)", e.Code, e.Message, e.Element)
	case e.Column != "":
		return fmt.Sprintf("%s: %s (column=%s)", e.Code, e.Message, e.Column)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// New creates an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithElement returns a copy of e annotated with the element name.
func (e *Error) WithElement(element string) *Error {
	cp := *e
	cp.Element = element
	return &cp
}

// WithColumn returns a copy of e annotated with element and column names.
func (e *Error) WithColumn(element, column string) *Error {
	cp := *e
	cp.Element = element
	cp.Column = column
	return &cp
}

// Validation creates a CodeValidation error.
func Validation(format string, args ...any) *Error {
	return New(CodeValidation, format, args...)
}

// Unsupported creates a CodeUnsupportedFeature error.
func Unsupported(format string, args ...any) *Error {
	return New(CodeUnsupportedFeature, format, args...)
}

// NotFound creates a CodeNotFound error.
func NotFound(format string, args ...any) *Error {
	return New(CodeNotFound, format, args...)
}

// TypeMismatch creates a CodeTypeMismatch error.
func TypeMismatch(format string, args ...any) *Error {
	return New(CodeTypeMismatch, format, args...)
}

// Invariant creates a CodeInvariant error.
func Invariant(format string, args ...any) *Error {
	return New(CodeInvariant, format, args...)
}

// BadParameter creates a CodeBadParameter error.
func BadParameter(format string, args ...any) *Error {
	return New(CodeBadParameter, format, args...)
}

// CodeOf returns the Code of the first *Error in err's chain, or "" when the
// chain holds none. Uses errors.As to handle wrapped errors.
func CodeOf(err error) Code {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
