package repository

import "errors"

// Sentinel errors returned by repository implementations. Callers match
// with errors.Is; implementations wrap them with context via fmt.Errorf.
var (
	// ErrNotFound indicates the requested character or object does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey indicates an insert violating the (name, game)
	// uniqueness invariant. No partial write is left behind.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrForeignKey indicates an ownership operation referencing a
	// character or object that does not exist.
	ErrForeignKey = errors.New("foreign key violation")

	// ErrStorageUnavailable indicates the underlying connection cannot be
	// opened or used.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
