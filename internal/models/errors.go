package models

import "errors"

// Common errors
var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrStateConflict is returned when a scheduler state write loses the
	// optimistic-concurrency version check (a concurrent cycle won)
	ErrStateConflict = errors.New("scheduler state version conflict")

	// ErrInvalidUUID is returned when a UUID is invalid
	ErrInvalidUUID = errors.New("invalid UUID")

	// ErrNoEligibleDeals is returned by selection when every candidate was
	// filtered out; a normal skip outcome, not a failure
	ErrNoEligibleDeals = errors.New("no eligible deals")

	// ErrUnknownPlatform is returned for a platform name outside the
	// supported set
	ErrUnknownPlatform = errors.New("unknown platform")
)
