package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// ErrSaveFailed means persistence reported zero rows affected where at
	// least one was expected. Distinct from ErrNotFound: the row existed when
	// the unit of work began.
	ErrSaveFailed = errors.New("failed to save changes")

	// ErrTokenExpired covers reset tokens whose validity window has passed
	ErrTokenExpired = errors.New("token has expired")
)
