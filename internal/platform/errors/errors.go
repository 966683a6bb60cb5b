package apperrors

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("invalid input")
	ErrTransport   = errors.New("transport failure")
	ErrPersistence = errors.New("persistence failure")
	ErrNoSession   = errors.New("no session")
)
