// Package common defines shared sentinel errors used across the account
// manager layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Caller-correctable errors surfaced by registry commands.
	ErrValidation = errors.New("validation error")
	ErrDuplicate  = errors.New("already exists")
	ErrNotFound   = errors.New("not found")

	// Remote service errors. ErrNetwork marks a transport-level failure;
	// ErrRemoteRejected marks a non-success status from the service itself.
	ErrNetwork        = errors.New("network error")
	ErrRemoteRejected = errors.New("remote service rejected request")

	// Store read/write failures.
	ErrPersistence = errors.New("persistence error")
)
