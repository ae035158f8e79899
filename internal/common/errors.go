// Package common contains shared constants, sentinel errors and small
// helpers used across beamlink components. Callers should match sentinel
// errors with errors.Is.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Profile / identity errors.
	ErrorNoProfile       = errors.New("profile not set up")
	ErrInvalidPassphrase = errors.New("invalid passphrase")
	ErrInvalidDID        = errors.New("invalid did format")

	// Messaging errors.
	ErrorMessageTooLong = errors.New("message exceeds maximum length")

	// Generic flow control.
	ErrorInternal = errors.New("internal error")
)
