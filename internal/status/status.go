// Package status defines the result codes returned by list-manager operations
// and the reconstruction pipeline.
//
// Every failure is a *Error carrying a Code. Callers test for a code with the
// standard library:
//
//	if errors.Is(err, status.ErrNotFound) { ... }
//
// Codes other than Fatal are recoverable results: the operation left the
// manager unchanged and the caller may decide what to do next. Fatal marks
// programming errors (deleting the null list, closing a scope that was never
// opened) and aborts processing of the current event.
package status

import (
	"errors"
	"fmt"
)

// Code classifies an operation failure.
type Code int

const (
	// OK is the code of a nil error.
	OK Code = iota
	// NotInitialized reports a read of something that does not exist yet,
	// including object creation while the null list is current.
	NotInitialized
	// NotFound reports a failed list-name or object-in-list lookup.
	NotFound
	// AlreadyPresent reports creation of a list name that is already registered.
	AlreadyPresent
	// InvalidParameter reports structurally invalid arguments, such as an empty selection.
	InvalidParameter
	// Failure is a generic operation failure.
	Failure
	// Fatal is an unrecoverable misuse of the manager.
	Fatal
)

func (c Code) String() string {
	switch c {
	case OK:
		return "OK"
	case NotInitialized:
		return "NOT_INITIALIZED"
	case NotFound:
		return "NOT_FOUND"
	case AlreadyPresent:
		return "ALREADY_PRESENT"
	case InvalidParameter:
		return "INVALID_PARAMETER"
	case Failure:
		return "FAILURE"
	case Fatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Sentinel values for errors.Is comparisons.
var (
	ErrNotInitialized   = &Error{Code: NotInitialized}
	ErrNotFound         = &Error{Code: NotFound}
	ErrAlreadyPresent   = &Error{Code: AlreadyPresent}
	ErrInvalidParameter = &Error{Code: InvalidParameter}
	ErrFailure          = &Error{Code: Failure}
	ErrFatal            = &Error{Code: Fatal}
)

// Error is a coded operation failure.
type Error struct {
	Code    Code
	Op      string // operation that failed, e.g. "SaveObjects"
	Subject string // list name or object the failure refers to
	Err     error  // optional underlying cause
}

// New builds an error for op with a formatted subject.
func New(code Code, op string, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Subject: fmt.Sprintf(format, args...)}
}

// Wrap builds an error for op around an underlying cause.
func Wrap(code Code, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

func (e *Error) Error() string {
	msg := e.Code.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Subject != "" {
		msg += ": " + e.Subject
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code, so sentinels compare by code only.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the code of the first *Error in err's chain. A nil error is
// OK; an error without a code is reported as Failure.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	if err == nil {
		return OK
	}
	return Failure
}

// IsFatal reports whether err, or any error joined into it, must abort the
// current event.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}
