package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrorKindNotFound     ErrorKind = "NOT_FOUND"
	ErrorKindBusinessRule ErrorKind = "BUSINESS_RULE"
	ErrorKindValidation   ErrorKind = "VALIDATION"
	ErrorKindTransient    ErrorKind = "TRANSIENT"
)

// Error is the error type returned by every core operation. Callers branch on
// Kind; Message is safe to show to end users.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
	// Input marks a BusinessRule raised by the request's own values rather
	// than by the current state.
	Input bool
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: ErrorKindNotFound, Message: fmt.Sprintf(format, args...)}
}

func BusinessRule(format string, args ...any) error {
	return &Error{Kind: ErrorKindBusinessRule, Message: fmt.Sprintf(format, args...)}
}

// InputRule is a BusinessRule about well-formed input that can never
// succeed as sent, such as an amount below the total due.
func InputRule(format string, args ...any) error {
	return &Error{Kind: ErrorKindBusinessRule, Message: fmt.Sprintf(format, args...), Input: true}
}

func Validation(format string, args ...any) error {
	return &Error{Kind: ErrorKindValidation, Message: fmt.Sprintf(format, args...)}
}

// Transient wraps a retryable failure such as a lock-wait timeout or an
// external port timeout.
func Transient(err error, format string, args ...any) error {
	return &Error{Kind: ErrorKindTransient, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, or "" when err is not a domain error.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

func IsNotFound(err error) bool     { return KindOf(err) == ErrorKindNotFound }
func IsBusinessRule(err error) bool { return KindOf(err) == ErrorKindBusinessRule }
func IsValidation(err error) bool   { return KindOf(err) == ErrorKindValidation }
func IsTransient(err error) bool    { return KindOf(err) == ErrorKindTransient }

func IsInputRule(err error) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == ErrorKindBusinessRule && de.Input
}
