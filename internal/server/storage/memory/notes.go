// Package memory хранит заметки relay в памяти процесса.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/iudanet/gophnotes/internal/crdt"
	"github.com/iudanet/gophnotes/internal/server/storage"
)

type record struct {
	doc       *crdt.Document
	createdAt time.Time
	updatedAt time.Time
	deletedAt time.Time
}

// Storage implements storage.NoteStorage on top of in-memory documents
type Storage struct {
	notes map[string]*record
	mu    sync.RWMutex
}

var _ storage.NoteStorage = (*Storage)(nil)

// New создаёт пустое хранилище
func New() *Storage {
	return &Storage{
		notes: make(map[string]*record),
	}
}

// CreateNote создаёт заметку из закодированного состояния
func (s *Storage) CreateNote(ctx context.Context, id string, state []byte, at time.Time) (*storage.Note, error) {
	doc, err := crdt.Decode(state)
	if err != nil {
		return nil, fmt.Errorf("failed to decode note %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notes[id]; ok {
		return nil, storage.ErrNoteExists
	}

	rec := &record{doc: doc, createdAt: at, updatedAt: at}
	s.notes[id] = rec

	return toNote(id, *rec)
}

// GetNote возвращает живую заметку
func (s *Storage) GetNote(ctx context.Context, id string) (*storage.Note, error) {
	s.mu.RLock()
	rec, ok := s.notes[id]
	var snapshot record
	if ok {
		snapshot = *rec
	}
	s.mu.RUnlock()

	if !ok || !snapshot.deletedAt.IsZero() {
		return nil, storage.ErrNoteNotFound
	}
	return toNote(id, snapshot)
}

// ApplyUpdate применяет delta к документу заметки
func (s *Storage) ApplyUpdate(ctx context.Context, id string, update []byte, at time.Time) error {
	rec, err := s.live(id)
	if err != nil {
		return err
	}

	// документ сам упорядочивает конкурентные изменения
	if err := rec.doc.ApplyUpdate(update, crdt.OriginRemote); err != nil {
		return fmt.Errorf("failed to apply update to note %s: %w", id, err)
	}

	s.mu.Lock()
	if at.After(rec.updatedAt) {
		rec.updatedAt = at
	}
	s.mu.Unlock()

	return nil
}

// Delta возвращает изменения, которых нет у владельца stateVector
func (s *Storage) Delta(ctx context.Context, id string, stateVector []byte) ([]byte, error) {
	rec, err := s.live(id)
	if err != nil {
		return nil, err
	}
	return rec.doc.Delta(stateVector)
}

// DeleteNote помечает заметку удалённой
func (s *Storage) DeleteNote(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.notes[id]
	if !ok || !rec.deletedAt.IsZero() {
		return storage.ErrNoteNotFound
	}
	rec.deletedAt = at
	rec.updatedAt = at
	return nil
}

// NotesChangedSince возвращает заметки, изменённые начиная с since
func (s *Storage) NotesChangedSince(ctx context.Context, since time.Time) ([]*storage.Note, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.notes))
	recs := make(map[string]record, len(s.notes))
	for id, rec := range s.notes {
		if rec.updatedAt.Before(since) {
			continue
		}
		ids = append(ids, id)
		recs[id] = *rec
	}
	s.mu.RUnlock()

	slices.Sort(ids)

	notes := make([]*storage.Note, 0, len(ids))
	for _, id := range ids {
		note, err := toNote(id, recs[id])
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, nil
}

func (s *Storage) live(id string) (*record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.notes[id]
	if !ok || !rec.deletedAt.IsZero() {
		return nil, storage.ErrNoteNotFound
	}
	return rec, nil
}

// toNote собирает заметку из копии записи, снятой под блокировкой
func toNote(id string, rec record) (*storage.Note, error) {
	content, err := rec.doc.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode note %s: %w", id, err)
	}

	return &storage.Note{
		ID:        id,
		Title:     rec.doc.Title(),
		Content:   content,
		Starred:   rec.doc.Starred(),
		CreatedAt: rec.createdAt,
		UpdatedAt: rec.updatedAt,
		DeletedAt: rec.deletedAt,
	}, nil
}
