// Package common defines shared constants and sentinel errors used across
// the lifevault engine. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal      = errors.New("internal error")
	ErrVersionConflict = errors.New("version conflict")

	// ErrInvalidToken is the single failure returned for any confirmation
	// token problem: unknown, already consumed, or expired. The causes are
	// deliberately indistinguishable to the caller.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrInvalidSettings rejects out-of-range user settings updates.
	ErrInvalidSettings = errors.New("invalid settings")
)
