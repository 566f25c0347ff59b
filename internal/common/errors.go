// Package common defines sentinel errors shared by the repositories,
// services and transport layers of the account service. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal           = errors.New("internal error")
	ErrorInvalidCredentials = errors.New("invalid credentials")

	// Session errors. Covers both stale and mismatched tokens.
	ErrorSessionExpired = errors.New("session expired")
)
