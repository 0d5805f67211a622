package domain

import "errors"

// Sentinel errors for conditions that are not part of the wire-stable
// settlement error taxonomy (see internal/settlement.Code) but are used by
// supporting infrastructure: persistence, caching, locking.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrLockHeld      = errors.New("lock already held")
	ErrContextDone   = errors.New("context cancelled")
)
