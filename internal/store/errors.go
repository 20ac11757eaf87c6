package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the
	// store. This is the generic version of the entity-specific not found
	// errors below.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., an artwork with the same external ID).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrUpdateFailed is returned when an update operation fails, for example
	// because the entity does not exist or the update violates constraints.
	ErrUpdateFailed = errors.New("update failed")

	// ErrUnavailable is returned when the store cannot reach the database at
	// all (connection refused, pool exhausted). Callers treat this as a
	// systemic outage rather than a per-row failure.
	ErrUnavailable = errors.New("store unavailable")

	// Entity-specific "not found" errors.

	// ErrArtworkNotFound indicates the requested artwork does not exist.
	ErrArtworkNotFound = fmt.Errorf("%w: artwork", ErrNotFound)

	// ErrFollowedUserNotFound indicates the requested followed user does not exist.
	ErrFollowedUserNotFound = fmt.Errorf("%w: followed user", ErrNotFound)

	// ErrCollectionLogNotFound indicates the requested collection log does not exist.
	ErrCollectionLogNotFound = fmt.Errorf("%w: collection log", ErrNotFound)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnavailableError checks if the error signals a systemic store outage.
func IsUnavailableError(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
