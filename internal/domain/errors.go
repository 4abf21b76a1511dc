package domain

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidIdentifier  = errors.New("invalid identifier")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrMissingToken       = errors.New("access token required")
	ErrInvalidToken       = errors.New("invalid or expired token")
)
