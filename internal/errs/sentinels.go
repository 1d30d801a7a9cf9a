// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across gateway/service layers.
var (
	// ErrNetwork indicates a transport failure or a backend response with an
	// unrecognized cause.
	ErrNetwork = errors.New("network failure")

	// ErrInvalidCredentials indicates unknown email or wrong password.
	// Both cases are deliberately surfaced as this one kind.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailUnverified indicates a valid account whose email has not been
	// verified yet.
	ErrEmailUnverified = errors.New("email unverified")

	// ErrEmailExists indicates an account already registered for the email.
	ErrEmailExists = errors.New("email already exists")

	// ErrEmailNotFound indicates no account is registered for the email.
	ErrEmailNotFound = errors.New("email not found")

	// ErrNotAuthenticated indicates an operation that requires an active
	// session was invoked without one.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNotFound indicates the requested entry does not exist.
	ErrNotFound = errors.New("not found")
)
