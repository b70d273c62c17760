// Package errs contains sentinel errors and the tagged error type used across
// layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates malformed or inconsistent input.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized indicates failed authentication (bad credentials, missing or invalid token).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates an authenticated caller that may not perform the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., username taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrInternal indicates an unexpected failure.
	ErrInternal = errors.New("internal error")

	// ErrInvalidToken indicates a bearer token that failed decoding, signature or expiry checks.
	ErrInvalidToken = errors.New("invalid token")
)
