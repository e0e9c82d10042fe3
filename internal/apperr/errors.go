// Package apperr defines the sentinel errors shared across layers.
package apperr

import "errors"

var (
	// ErrNotFound marks a missing mechanism or design.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks an optimistic-concurrency mismatch.
	ErrConflict = errors.New("conflict")
	// ErrAlreadyExists marks a duplicate create.
	ErrAlreadyExists = errors.New("already exists")
	// ErrCacheMiss marks a stale or absent trajectory cache entry. It is
	// normal control flow, not a failure: callers recompute.
	ErrCacheMiss = errors.New("trajectory cache miss")
	// ErrUsage marks a call with invalid arguments (bad step counts,
	// non-positive rpm, empty trajectories).
	ErrUsage = errors.New("invalid usage")
)
