// Package errors provides the typed error kinds shared by the gateway packages.
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// Standard error functions
var (
	Is     = errors.Is
	As     = errors.As
	Join   = errors.Join
	Unwrap = errors.Unwrap
)

// Error kinds raised by the correlation core.
const (
	KindMalformedIdentifier  = "MalformedIdentifier"
	KindUnknownOrder         = "UnknownOrder"
	KindUnknownRequestID     = "UnknownRequestId"
	KindOrderNotFound        = "OrderNotFound"
	KindMissingField         = "MissingField"
	KindInvalidField         = "InvalidField"
	KindTransportUnavailable = "TransportUnavailable"
	KindInvalidOrder         = "InvalidOrder"
	KindDuplicateOrder       = "DuplicateOrder"
)

var (
	MalformedIdentifier  = NewWithKind(KindMalformedIdentifier)
	UnknownOrder         = NewWithKind(KindUnknownOrder)
	UnknownRequestID     = NewWithKind(KindUnknownRequestID)
	OrderNotFound        = NewWithKind(KindOrderNotFound)
	MissingField         = NewWithKind(KindMissingField)
	InvalidField         = NewWithKind(KindInvalidField)
	TransportUnavailable = NewWithKind(KindTransportUnavailable)
	InvalidOrder         = NewWithKind(KindInvalidOrder)
	DuplicateOrder       = NewWithKind(KindDuplicateOrder)
)

// FieldError names a single offending field.
type FieldError struct {
	Kind    string `json:"kind"`
	Field   string `json:"field"`
	Message string `json:"message,omitempty"`
}

func (f *FieldError) Error() string {
	return fmt.Sprintf("%s (%s): %s", f.Field, f.Kind, f.Message)
}

func NewFieldError(kind, field, reason string) FieldError {
	return FieldError{Kind: kind, Field: field, Message: reason}
}

// Error is a custom error type for passing more information
type Error struct {
	// Kind is the returned error type
	Kind string `json:"kind"`
	// Message is the human readable string that indicate the error
	Message string `json:"message"`
	// Fields used when there's validation error for a field.
	Fields []FieldError `json:"fields,omitempty"`

	trace []byte
	cause error
}

var _ error = (*Error)(nil)

func New(message string) *Error {
	return &Error{Kind: "Unknown", Message: message}
}

func NewWithKind(kind string) *Error {
	return &Error{Kind: kind}
}

func Wrap(err error) *Error {
	return &Error{cause: err}
}

// Error implements error
func (e *Error) Error() string {
	str := fmt.Sprintf("[%s] ", e.Kind)
	if e.Message != "" {
		str += e.Message
	}
	if e.cause != nil {
		str += fmt.Sprintf(" (%s)", e.cause)
	}
	if len(e.trace) > 0 {
		str = str + fmt.Sprintf("\n\nTrace: %s", string(e.trace))
	}
	return str
}

// Reason returns a copy of the error with kind set to given value
func (e *Error) Reason(kind string) *Error {
	err := *e
	err.Kind = kind
	return &err
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Wrap returns a copy of the error with the given cause.
func (e *Error) Wrap(cause error) *Error {
	err := *e
	err.cause = cause
	return &err
}

// Explain makes a copy of the error with given message
func (e *Error) Explain(message string, args ...any) *Error {
	err := *e
	err.Message = fmt.Sprintf(message, args...)
	return &err
}

// Trace sets the error stack trace
func (e *Error) Trace() *Error {
	stack := make([]byte, 2048)
	n := runtime.Stack(stack, false)
	e.trace = stack[:n]
	return e
}

func (e *Error) WithFields(fields []FieldError) *Error {
	newError := *e
	newError.Fields = fields
	return &newError
}

// WithField returns a copy of the error with one more field appended.
func (e *Error) WithField(kind, field, message string) *Error {
	newError := *e
	newError.Fields = append(append([]FieldError(nil), e.Fields...), NewFieldError(kind, field, message))
	return &newError
}

// Is implements the needed interface for errors.Is
// It checks kind for equality
func (e *Error) Is(target error) bool {
	if e == nil {
		return target == nil
	}
	if other, ok := target.(*Error); ok {
		return other.Kind == e.Kind
	}
	if e.cause != nil {
		return Is(e.cause, target)
	}
	return false
}

// KindOf returns the kind of the first *Error in the chain, or "" when none.
func KindOf(err error) string {
	var e *Error
	if As(err, &e) {
		return e.Kind
	}
	return ""
}
