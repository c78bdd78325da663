package errs

import "errors"

var (
	// ErrNotFound is returned when a resource is not found.
	// Ownership mismatches surface as ErrNotFound on purpose: a caller must not
	// be able to tell a foreign resource from a missing one.
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists is returned when a unique constraint is violated
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput is returned when input data is malformed or contains
	// fields outside the permitted set
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidCredentials is returned on login failure. The same error covers
	// an unknown email and a wrong password so accounts cannot be enumerated.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthorized is returned when a request carries no valid session token
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidFile is returned when an uploaded file fails the format or
	// size checks
	ErrInvalidFile = errors.New("invalid file")

	// ErrStore is returned when the underlying store fails
	ErrStore = errors.New("store failure")
)
