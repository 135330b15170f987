package service

import "errors"

var (
	ErrValidation         = errors.New("validation error")
	ErrNotAuthenticated   = errors.New("user not authenticated")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserExists         = errors.New("user already exists")
)

// ValidationError reports the first rejected field of a request payload.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
