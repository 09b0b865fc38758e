// Package apperr defines the typed failures shared by the repository, the event bus,
// the processing worker and the HTTP layer. Each type wraps its cause so callers can
// use errors.Is / errors.As through fmt.Errorf chains.
package apperr

import (
	"errors"
	"fmt"
)

// NotFoundError reports that a referenced id is absent from the durable store.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// PersistenceError reports that the durable store is unreachable or rejected a write.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// TransportError reports that the message broker could not be reached.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UnsupportedFormatError reports a mimeType with no registered parser.
type UnsupportedFormatError struct {
	MimeType string
}

func (e *UnsupportedFormatError) Error() string {
	return "Unsupported file type"
}

// ValidationError reports malformed caller input (filters, sort, pagination, payloads).
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

func Persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

func Transport(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}

func UnsupportedFormat(mimeType string) error {
	return &UnsupportedFormatError{MimeType: mimeType}
}

func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Validationf wraps a cause, typically a decode or regexp compile error.
func Validationf(field string, err error, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Err: err}
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsPersistence(err error) bool {
	var target *PersistenceError
	return errors.As(err, &target)
}

func IsTransport(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

func IsUnsupportedFormat(err error) bool {
	var target *UnsupportedFormatError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
