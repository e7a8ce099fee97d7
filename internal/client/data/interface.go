package data

import (
	"context"

	"github.com/iudanet/gophnotes/internal/crdt"
	"github.com/iudanet/gophnotes/pkg/api"
)

//go:generate moq -out remote_mock.go . Remote

// Remote операции сервера над записями заметок
type Remote interface {
	CreateNote(ctx context.Context, req api.CreateNoteRequest) (*api.CreateNoteResponse, error)
	DeleteNote(ctx context.Context, noteID string) (*api.DeleteNoteResponse, error)
}

// Syncer часть движка синхронизации, нужная сервису заметок
type Syncer interface {
	RegisterDocument(noteID string, doc *crdt.Document)
	UnregisterDocument(noteID string)
	Resync(noteID string) error
	DropPending(noteID string) int
}
