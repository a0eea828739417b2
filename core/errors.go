package core

import "github.com/pkg/errors"

// FieldError ties an error message to one field of a portal request payload.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is returned when a portal request fails validation, either
// wholesale (Err) or per field (Fields). The HTTP error handler renders it as
// a 400 with a field-to-message map.
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

// shutdown signals that the gateway cannot safely keep serving and should be
// gracefully restarted.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

// IsShutdown reports whether err, at its cause, asks for a shutdown.
func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
