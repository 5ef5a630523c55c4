// Package common defines shared constants and sentinel errors used across
// docusigner layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// Compare-and-set update lost the race or hit a terminal row.
	ErrConflict = errors.New("conflict")

	// Validation errors.
	ErrInvalidInput = errors.New("invalid input")

	// Stamping could not produce a document (bad page, corrupt source, unreadable font).
	ErrRenderFailure = errors.New("render failure")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Invitation lifecycle errors.
	ErrExpired = errors.New("link expired")
)
