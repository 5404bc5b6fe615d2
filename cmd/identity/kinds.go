package identity

import "errors"

// Sentinel error kinds (stable for errors.Is and for mapping to API status codes).
var (
	ErrInvalidInput = errors.New("invalid_input")
	ErrNotFound     = errors.New("not_found")
	ErrConflict     = errors.New("conflict")
	ErrStorage      = errors.New("storage_error")
	// ErrIntegrity means stored data violates an invariant, e.g. two users share a username.
	ErrIntegrity = errors.New("integrity_error")
)
