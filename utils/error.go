package utils

import (
	"errors"
	"fmt"
)

var (
	ErrorRecordNotFound = errors.New("record not found")
	ErrorUnauthorized   = errors.New("unauthorized")
	ErrorForbidden      = errors.New("forbidden")
	ErrorBusy           = errors.New("account is busy, try again")
)

// InputError is a request value the caller must correct.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

func InvalidInput(message string) error {
	return &InputError{Message: message}
}

func InvalidInputf(format string, args ...any) error {
	return &InputError{Message: fmt.Sprintf(format, args...)}
}

// deniedError carries a caller-facing message and unwraps to its sentinel.
type deniedError struct {
	message string
	kind    error
}

func (e *deniedError) Error() string { return e.message }
func (e *deniedError) Unwrap() error { return e.kind }

func Unauthorized(message string) error {
	return &deniedError{message: message, kind: ErrorUnauthorized}
}

func Forbidden(message string) error {
	return &deniedError{message: message, kind: ErrorForbidden}
}
