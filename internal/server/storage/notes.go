package storage

import (
	"context"
	"time"
)

// Note представляет заметку на сервере
type Note struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt time.Time // нулевое значение у живой заметки
	ID        string
	Title     string
	Content   []byte // полное закодированное состояние документа
	Starred   bool
}

// Deleted сообщает, что заметка удалена
func (n *Note) Deleted() bool {
	return !n.DeletedAt.IsZero()
}

// NoteStorage defines interface for server-side note documents
type NoteStorage interface {
	// CreateNote creates a note from encoded document state (may be empty)
	// Returns ErrNoteExists if note with this ID was ever created
	CreateNote(ctx context.Context, id string, state []byte, at time.Time) (*Note, error)

	// GetNote returns a live note
	// Returns ErrNoteNotFound if note doesn't exist or is deleted
	GetNote(ctx context.Context, id string) (*Note, error)

	// ApplyUpdate merges a document update into the note
	// Returns ErrNoteNotFound if note doesn't exist or is deleted
	ApplyUpdate(ctx context.Context, id string, update []byte, at time.Time) error

	// Delta returns changes the holder of stateVector is missing
	// Returns ErrNoteNotFound if note doesn't exist or is deleted
	Delta(ctx context.Context, id string, stateVector []byte) ([]byte, error)

	// DeleteNote marks note as deleted
	// Returns ErrNoteNotFound if note doesn't exist or is already deleted
	DeleteNote(ctx context.Context, id string, at time.Time) error

	// NotesChangedSince returns notes (including deleted) created, updated
	// or deleted at or after since, ordered by ID
	NotesChangedSince(ctx context.Context, since time.Time) ([]*Note, error)
}
