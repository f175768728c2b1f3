package usecase

import (
	"errors"
	"fmt"
)

// ErrorCode is the client-facing failure class of a reply. The handler maps
// it to an HTTP status and returns it as {"error": code}.
type ErrorCode string

const (
	ErrorInvalidInput ErrorCode = "INVALID_INPUT"
	ErrorRateLimited  ErrorCode = "RATE_LIMITED"
	ErrorUpstream     ErrorCode = "UPSTREAM_ERROR"
	ErrorInternal     ErrorCode = "INTERNAL_ERROR"
)

// Error is a classified reply failure. Reason is a stable snake_case tag for
// logs; Err is the underlying cause, if any.
type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("usecase: reply failed [%s/%s]", e.Code, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// CodeOf returns the code carried by err, or ErrorInternal when err was not
// produced by this package.
func CodeOf(err error) ErrorCode {
	var ucErr *Error
	if errors.As(err, &ucErr) && ucErr.Code != "" {
		return ucErr.Code
	}
	return ErrorInternal
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}
