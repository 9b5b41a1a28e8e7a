// Package qerr defines the error taxonomy shared by every execution path.
//
// The dispatcher performs no error translation, so the local evaluator and
// every provider must report the same conditions with the same codes. That
// symmetry is what makes the synchronous fallback transparent to callers.
package qerr

import (
	"errors"
	"fmt"
)

// Code categorizes query execution errors.
type Code string

const (
	// CodeNoElements indicates an operation that requires at least one
	// (matching) element found none.
	CodeNoElements Code = "NO_ELEMENTS"

	// CodeMultipleElements indicates a Single-style operation matched more
	// than one element.
	CodeMultipleElements Code = "MULTIPLE_ELEMENTS"

	// CodeIndexOutOfRange indicates an element index outside the sequence.
	CodeIndexOutOfRange Code = "INDEX_OUT_OF_RANGE"

	// CodeDuplicateKey indicates a keyed-mapping insert collided.
	CodeDuplicateKey Code = "DUPLICATE_KEY"

	// CodeInvalidArgument indicates a caller error detected at the call
	// boundary (nil predicate, out-of-range page number, ...).
	CodeInvalidArgument Code = "INVALID_ARGUMENT"

	// CodeNotTranslatable indicates a provider was handed an expression
	// shape it cannot execute (e.g. an opaque closure in a tree bound for a
	// translating backend).
	CodeNotTranslatable Code = "NOT_TRANSLATABLE"

	// CodeInternal indicates an invariant violation inside this library.
	CodeInternal Code = "INTERNAL"
)

// Error is the structured error type for query execution.
//
// Op names the operation being executed ("Single", "PageOf", ...). Token,
// when set, identifies the provider-side execution that failed.
type Error struct {
	Code    Code
	Op      string
	Message string
	Token   string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s (op=%s)", e.Code, e.Message, e.Op)
	}
	if e.Token != "" {
		msg += fmt.Sprintf(" (query=%s)", e.Token)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// New creates an Error with the given code, operation, and message.
func New(code Code, op, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the Code from err, unwrapping as needed. Returns the
// empty code for nil or foreign errors.
func CodeOf(err error) Code {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Code
	}
	return ""
}

// IsNoElements reports whether err is a NO_ELEMENTS error.
func IsNoElements(err error) bool { return CodeOf(err) == CodeNoElements }

// IsMultipleElements reports whether err is a MULTIPLE_ELEMENTS error.
func IsMultipleElements(err error) bool { return CodeOf(err) == CodeMultipleElements }

// IsIndexOutOfRange reports whether err is an INDEX_OUT_OF_RANGE error.
func IsIndexOutOfRange(err error) bool { return CodeOf(err) == CodeIndexOutOfRange }

// IsDuplicateKey reports whether err is a DUPLICATE_KEY error.
func IsDuplicateKey(err error) bool { return CodeOf(err) == CodeDuplicateKey }

// IsInvalidArgument reports whether err is an INVALID_ARGUMENT error.
func IsInvalidArgument(err error) bool { return CodeOf(err) == CodeInvalidArgument }

// IsNotTranslatable reports whether err is a NOT_TRANSLATABLE error.
func IsNotTranslatable(err error) bool { return CodeOf(err) == CodeNotTranslatable }
