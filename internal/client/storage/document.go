package storage

import "context"

//go:generate moq -out document_mock.go . DocumentStorage

// DocumentStorage defines interface for durable storage of note documents on client.
// Each note has one snapshot (full encoded state) and an append-only log of updates
// recorded since that snapshot. Storage only sees opaque bytes.
type DocumentStorage interface {
	// Load returns the snapshot of a note
	// Returns ErrSnapshotNotFound if no snapshot was saved
	Load(ctx context.Context, noteID string) ([]byte, error)

	// Save replaces the snapshot of a note
	Save(ctx context.Context, noteID string, state []byte) error

	// Delete removes the snapshot and the update log of a note
	Delete(ctx context.Context, noteID string) error

	// List returns IDs of all notes that have a snapshot or logged updates
	List(ctx context.Context) ([]string, error)

	// SaveUpdate appends an update to the log of a note.
	// Must be durable when it returns nil.
	SaveUpdate(ctx context.Context, noteID string, update []byte) error

	// LoadUpdates returns the logged updates of a note in append order
	LoadUpdates(ctx context.Context, noteID string) ([][]byte, error)

	// ClearUpdates truncates the log of a note
	ClearUpdates(ctx context.Context, noteID string) error
}
