package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTransient    = errors.New("transient upstream failure")
	ErrLockHeld     = errors.New("lock already held")
	// ErrInvalidEvent marks input that breaks the CanonicalEvent shape, such
	// as an empty league or team, or events from the wrong venue.
	ErrInvalidEvent = errors.New("invalid canonical event")
)
