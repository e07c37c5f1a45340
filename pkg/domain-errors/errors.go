// Package domainerrors provides code-carrying errors for expected, recoverable
// conditions. Services return these so transports can map each code to a
// distinct caller-facing response without string matching.
//
// Infrastructure facts (not found in a store, version conflicts) start life as
// pkg/platform/sentinel errors; services translate them into coded errors at
// the boundary where the business meaning is known.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an expected failure.
type Code string

const (
	// CodeIllegalTransition marks a lifecycle event that is not valid from
	// the record's current status. No mutation is applied.
	CodeIllegalTransition Code = "illegal_transition"

	// CodeInsufficientCheckLevel marks a completion attempt whose check level
	// is too weak for the subject's role sensitivity.
	CodeInsufficientCheckLevel Code = "insufficient_check_level"

	// CodeConflict marks optimistic-concurrency conflicts; the caller should
	// retry against fresh state.
	CodeConflict Code = "conflict"

	CodeValidation         Code = "validation"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInvalidInput       Code = "invalid_input"
	CodeBadRequest         Code = "bad_request"
	CodeNotFound           Code = "not_found"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeInternal           Code = "internal"
)

// Error is a coded error with an operator-facing message.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. The cause stays
// reachable through errors.Is/As for sentinel checks.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var coded *Error
	for errors.As(err, &coded) {
		if coded.Code == code {
			return true
		}
		err = coded.cause
		coded = nil
	}
	return false
}

// CodeOf returns the outermost code carried by err, or CodeInternal when err
// is not a coded error.
func CodeOf(err error) Code {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return CodeInternal
}
