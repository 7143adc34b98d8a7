package models

import (
	"errors"
	"fmt"
)

var (
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrUserNotFound      = errors.New("user not found")
	ErrIncorrectPassword = errors.New("incorrect password")
	ErrUsernameTaken     = errors.New("username already taken")
	ErrRecordNotFound    = errors.New("record not found")
	ErrWrongRecordKind   = errors.New("operation not supported for this record kind")
	ErrNoSession         = errors.New("no authenticated session")
	ErrValidation        = errors.New("invalid input")
	ErrIO                = errors.New("i/o failure")
)

// IsCredentialError reports whether err is one of the login failures that the
// UI collapses into a single "username or password is incorrect" message.
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrIncorrectPassword)
}

// ValidationError rejects a single malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid is shorthand for building a *ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IOError is an import/export failure tied to a file.
type IOError struct {
	Op   string // "open", "read", "write", "close"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

// ParseError points at the line of an import file that could not be read back.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrValidation }
