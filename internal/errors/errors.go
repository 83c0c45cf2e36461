// Package errors provides coded pipeline errors for liveplan.
//
// Usage:
//
//	// In a stage - return typed errors
//	if len(rows) == 0 {
//	    return errors.EmptyResultf("no sessions for %s", area)
//	}
//
//	// In the caller - check with errors.Is
//	if errors.Is(err, errors.ErrSourceUnavailable) {
//	    log.Warn("falling back to sample data", "error", err)
//	}
//
//	// Or switch on the Code
//	var pipeErr *errors.Error
//	if errors.As(err, &pipeErr) {
//	    switch pipeErr.Code {
//	    case errors.CodeSchemaMismatch:
//	        ...
//	    }
//	}
package errors

import (
	"errors"
	"fmt"
)

// Re-exported so callers need a single errors import.
var (
	Is   = errors.Is
	As   = errors.As
	Join = errors.Join
)

// Code classifies a pipeline failure.
type Code string

const (
	CodeSourceUnavailable Code = "SOURCE_UNAVAILABLE"
	CodeSchemaMismatch    Code = "SCHEMA_MISMATCH"
	CodeEmptyResult       Code = "EMPTY_RESULT"
	CodeRenderFailed      Code = "RENDER_FAILED"
	CodeValidation        Code = "VALIDATION"
	CodeNotFound          Code = "NOT_FOUND"
	CodeInternal          Code = "INTERNAL"
)

// Degradable reports whether a step failing with this code may continue on
// fallback data when strict mode is off. Validation and internal errors
// always abort the run.
func (c Code) Degradable() bool {
	switch c {
	case CodeSourceUnavailable, CodeSchemaMismatch, CodeEmptyResult, CodeRenderFailed, CodeNotFound:
		return true
	default:
		return false
	}
}

// Error is a coded pipeline error. Two Errors match under errors.Is when
// their codes match.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

func (e *Error) Is(target error) bool {
	var t *Error
	return errors.As(target, &t) && e.Code == t.Code
}

// WithDetails returns a copy carrying details. The receiver is not modified,
// so sentinels stay clean.
func (e *Error) WithDetails(details any) *Error {
	c := *e
	c.Details = details
	return &c
}

// WithCause returns a copy wrapping err.
func (e *Error) WithCause(err error) *Error {
	c := *e
	c.cause = err
	return &c
}

// Sentinels for errors.Is.
var (
	ErrSourceUnavailable = &Error{Code: CodeSourceUnavailable, Message: "source unavailable"}
	ErrSchemaMismatch    = &Error{Code: CodeSchemaMismatch, Message: "schema mismatch"}
	ErrValidation        = &Error{Code: CodeValidation, Message: "validation error"}
	ErrNotFound          = &Error{Code: CodeNotFound, Message: "not found"}
)

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

func newf(code Code, format string, args []any) *Error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Code: code, Message: msg}
}

func SourceUnavailable(msg string) *Error { return newf(CodeSourceUnavailable, msg, nil) }

func SchemaMismatch(msg string) *Error { return newf(CodeSchemaMismatch, msg, nil) }

func SchemaMismatchf(format string, args ...any) *Error {
	return newf(CodeSchemaMismatch, format, args)
}

func EmptyResult(msg string) *Error { return newf(CodeEmptyResult, msg, nil) }

func EmptyResultf(format string, args ...any) *Error {
	return newf(CodeEmptyResult, format, args)
}

func RenderFailed(msg string) *Error { return newf(CodeRenderFailed, msg, nil) }

// ValidationWithDetails reports invalid configuration; details is usually a
// field-to-message map.
func ValidationWithDetails(msg string, details any) *Error {
	return newf(CodeValidation, msg, nil).WithDetails(details)
}

func NotFoundf(format string, args ...any) *Error {
	return newf(CodeNotFound, format, args)
}

// Wrap attaches a code and message to err.
func Wrap(err error, code Code, msg string) *Error {
	return newf(code, msg, nil).WithCause(err)
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return newf(code, format, args).WithCause(err)
}
