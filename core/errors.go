package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// SecondaryError reports a best-effort follow-up that failed after the primary action succeeded.
// It is recorded for display but never returned as the result of the primary action.
type SecondaryError struct {
	Action string // what succeeded
	Err    error  // what did not
}

func NewSecondaryError(action string, err error) *SecondaryError {
	return &SecondaryError{Action: action, Err: err}
}

func (err *SecondaryError) Error() string {
	return err.Action + " succeeded, but the follow-up refresh failed: " + err.Err.Error()
}

func (err *SecondaryError) Unwrap() error { return err.Err }

func IsSecondary(err error) bool {
	_, ok := errors.Cause(err).(*SecondaryError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
