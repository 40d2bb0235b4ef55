// Package common defines shared constants and sentinel errors used across
// client and server layers of SketchHub. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("conflict")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorValidation   = errors.New("validation error")
	ErrorBadRequest   = errors.New("bad request")
	ErrorRateLimited  = errors.New("too many requests")

	// Favorite-specific errors. Both are Conflict-class and wrap ErrorConflict.
	ErrorAlreadyFavorited = &kindError{msg: "this model is already in favorites", kind: ErrorConflict}
	ErrorNotFavorited     = &kindError{msg: "this model is not in favorites", kind: ErrorConflict}

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

// kindError is a sentinel with its own message that still matches a broader
// error class through errors.Is.
type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }
