package processor

import (
	"errors"
	"fmt"
)

// Code classifies a per-file failure.
type Code string

const (
	CodeUnsupportedInput Code = "UNSUPPORTED_INPUT"
	CodeDecode           Code = "DECODE_FAILED"
	CodeDelete           Code = "DELETE_FAILED"
	CodeWrite            Code = "WRITE_FAILED"
)

// ErrAborted is returned when the operator declines to continue after a
// failure.
var ErrAborted = errors.New("aborted by operator")

// Error is a failure tied to one file.
type Error struct {
	Code  Code
	Path  string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Path, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Path)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(code Code, path string, cause error) *Error {
	return &Error{Code: code, Path: path, Cause: cause}
}

// IsCode reports whether err wraps an *Error with the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
