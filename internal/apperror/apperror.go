package apperror

import (
	"errors"
)

// Kind classifies an application error for callers and transports.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindNotFound    Kind = "not_found"
	KindTransaction Kind = "transaction"
	KindProbe       Kind = "probe"
)

// Error is a classified, comparable application error. Domains declare
// package-level values and wrap them with fmt.Errorf("%w: ...") to add detail.
type Error struct {
	Kind    Kind
	Code    string
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation declares a validation failure for a single input field.
func Validation(field, code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Field: field, Message: message}
}

// NotFound declares a dangling reference to an entity.
func NotFound(field, code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Field: field, Message: message}
}

// Transaction wraps a store commit failure.
func Transaction(code, message string, err error) *Error {
	return &Error{Kind: KindTransaction, Code: code, Message: message, Err: err}
}

// Probe wraps a failed liveness probe.
func Probe(message string, err error) *Error {
	return &Error{Kind: KindProbe, Code: "probe_failed", Message: message, Err: err}
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) && appErr != nil {
		return appErr, true
	}
	return nil, false
}

// KindOf reports the kind of err, or "" when err is not classified.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return ""
}

func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}
