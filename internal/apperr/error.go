package apperr

import (
	"errors"
	"net/http"
)

// Code is a stable identifier for an error class.
type Code int

const (
	CodeInternal          Code = iota // Unexpected failure.
	CodeUnsupportedFormat             // File extension is not csv or xlsx.
	CodeParseFailure                  // File content could not be parsed.
	CodeInvalidInput                  // Bad user selection (unknown column, wrong direction).
	CodeConflict                      // Operation not allowed in the pipeline's current state.
)

func (c Code) String() string {
	switch c {
	case CodeUnsupportedFormat:
		return "UNSUPPORTED_FORMAT"
	case CodeParseFailure:
		return "PARSE_FAILURE"
	case CodeInvalidInput:
		return "INVALID_INPUT"
	case CodeConflict:
		return "CONFLICT"
	default:
		return "INTERNAL"
	}
}

// Error is a classified error. It may wrap an underlying cause.
type Error struct {
	err  error
	msg  string
	code Code
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.msg != "" && e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	if e.msg != "" {
		return e.msg
	}
	if e.err != nil {
		return e.err.Error()
	}
	return "internal error"
}

// Msg returns the user-facing message without the wrapped cause.
func (e *Error) Msg() string {
	if e.msg == "" {
		return e.Error()
	}
	return e.msg
}

func (e *Error) Code() Code { return e.code }

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.err }

// StatusCode maps the error code to an HTTP status code.
func (e *Error) StatusCode() int {
	switch e.code {
	case CodeUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case CodeParseFailure:
		return http.StatusUnprocessableEntity
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func new(err error, msg string, code Code) error {
	return &Error{err: err, msg: msg, code: code}
}

// NewInternal wraps an unexpected error.
func NewInternal(err error) error {
	return new(err, "", CodeInternal)
}

// NewUnsupportedFormat wraps the loader's format error.
func NewUnsupportedFormat(err error) error {
	return new(err, "", CodeUnsupportedFormat)
}

// NewParseFailure reports unreadable content for the named file.
func NewParseFailure(name string, err error) error {
	return new(err, "could not parse "+name, CodeParseFailure)
}

func NewInvalidInput(msg string) error {
	return new(nil, msg, CodeInvalidInput)
}

func NewConflict(msg string) error {
	return new(nil, msg, CodeConflict)
}

// CodeOf returns the code of the first *Error in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) Code {
	var aerr *Error
	if errors.As(err, &aerr) {
		return aerr.code
	}
	return CodeInternal
}

// StatusOf returns the HTTP status for err.
func StatusOf(err error) int {
	var aerr *Error
	if errors.As(err, &aerr) {
		return aerr.StatusCode()
	}
	return http.StatusInternalServerError
}

// MessageOf returns the user-facing message for err.
func MessageOf(err error) string {
	var aerr *Error
	if errors.As(err, &aerr) {
		return aerr.Msg()
	}
	return "internal error"
}
