package service

import "errors"

// ValidationError carries the exact message returned to the client with a
// 400 status.  Validation errors are detected before any store access.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error { return &ValidationError{Message: msg} }

var (
	// ErrUserAlreadyExists is returned by Register for a taken username,
	// whether found by the lookup or by the unique index on insert.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrInvalidCredentials covers both an unknown username and a wrong
	// password so that callers cannot tell them apart.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrForbidden is wrapped by every *ForbiddenError.
	ErrForbidden = errors.New("forbidden")
)
