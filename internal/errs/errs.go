// ABOUTME: Typed errors shared by the service layer and its HTTP, MCP, and CLI callers.
// ABOUTME: Callers branch on the type with errors.As to pick a status code or exit message.
package errs

import "fmt"

type ErrorMessage struct {
	Message string
}

func (e *ErrorMessage) Error() string { return e.Message }

// ValidationError is bad input from the caller.
type ValidationError struct {
	ErrorMessage
}

// NotFoundError is a missing entity or record.
type NotFoundError struct {
	ErrorMessage
}

// ConflictError is a request that cannot run in the current state, e.g. a reset
// while another one is in flight.
type ConflictError struct {
	ErrorMessage
}

// ExternalServiceError is a failure talking to Home Assistant.
type ExternalServiceError struct {
	ErrorMessage
	Service string
	// Transient is true for transport failures and 5xx answers.
	Transient bool
	Err       error
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{ErrorMessage: ErrorMessage{Message: fmt.Sprintf(format, args...)}}
}

func NewNotFoundError(format string, args ...any) *NotFoundError {
	return &NotFoundError{ErrorMessage: ErrorMessage{Message: fmt.Sprintf(format, args...)}}
}

func NewConflictError(format string, args ...any) *ConflictError {
	return &ConflictError{ErrorMessage: ErrorMessage{Message: fmt.Sprintf(format, args...)}}
}

func NewExternalServiceError(service string, transient bool, err error) *ExternalServiceError {
	return &ExternalServiceError{
		ErrorMessage: ErrorMessage{Message: err.Error()},
		Service:      service,
		Transient:    transient,
		Err:          err,
	}
}
