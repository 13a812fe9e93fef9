// Package common defines sentinel errors and small helpers shared by the
// slotkeeper server layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")
	ErrorStorage       = errors.New("storage error")

	// Boundary errors.
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")
	ErrorDecode       = errors.New("could not decode base64 config")

	// Lease engine errors.
	ErrorNoCapacity    = errors.New("no free slot available")
	ErrorNoActiveLease = errors.New("all config slots are unused")
	ErrorContention    = errors.New("ledger contention")
	ErrorBlobNotFound  = errors.New("config blob not found")

	ErrorInternal = errors.New("internal error")
)
