// Package services defines the business logic above the persistence layer:
// account linking, alias registration, match deduplication, rank caching,
// and batch aggregation. This file centralizes the service-level error
// taxonomy so callers can classify failures with errors.Is.
//
// Propagation policy: component boundaries reclassify collaborator errors
// into this taxonomy. Only not-found and persistence failures are meant to
// reach a user-facing layer as distinct messages; everything else should be
// flattened to a generic "try again later".
package services

import "errors"

var (
	// ErrAccountNotFound indicates the Riot account does not exist upstream.
	// Never retried automatically.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAliasNotFound indicates the requested alias is not registered.
	ErrAliasNotFound = errors.New("alias not found")

	// ErrLinkNotFound indicates the user has no linked Riot ID.
	ErrLinkNotFound = errors.New("no linked account")

	// ErrEmptyAlias is returned when a registration carries a blank alias.
	ErrEmptyAlias = errors.New("alias is empty")

	// ErrAliasTooLong is returned when an alias exceeds the length limit.
	ErrAliasTooLong = errors.New("alias too long")

	// ErrEmptyRiotID is returned when name or tag is blank.
	ErrEmptyRiotID = errors.New("name and tag must not be empty")

	// ErrPersistence wraps store write failures. Non-fatal to the poll tick
	// or command that triggered the write.
	ErrPersistence = errors.New("persistence failure")
)
