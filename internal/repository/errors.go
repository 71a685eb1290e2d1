package repository

import "errors"

// Storage-layer errors. Services map these onto business errors; nothing
// above the service layer sees them.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicateEntry indicates a write violated a uniqueness constraint.
	ErrDuplicateEntry = errors.New("repository: duplicate entry")
)

var (
	ErrSnapshotNotFound = ErrNotFound
	ErrCacheMiss        = ErrNotFound
)
