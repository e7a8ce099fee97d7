package storage

import "errors"

// Common storage errors
var (
	// ErrNoteNotFound indicates that note does not exist or was deleted
	ErrNoteNotFound = errors.New("note not found")

	// ErrNoteExists indicates that note with this ID already exists
	ErrNoteExists = errors.New("note already exists")
)
