package errors

import "errors"

// Sentinel errors for common error conditions
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput indicates that input validation failed
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable indicates that an external collaborator is unreachable
	ErrUnavailable = errors.New("service unavailable")

	// ErrSessionClosed indicates an operation on a finished interview session
	ErrSessionClosed = errors.New("session closed")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")
)
