package storage

import "errors"

// Common client storage errors
var (
	// ErrSnapshotNotFound indicates that note has no saved snapshot
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
