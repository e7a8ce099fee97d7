// Package memory реализует хранилище документов в памяти процесса.
// Используется в тестах и для временных сессий без диска.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/iudanet/gophnotes/internal/client/storage"
)

// Storage represents in-memory storage implementation for client
type Storage struct {
	snapshots map[string][]byte
	updates   map[string][][]byte
	lastSync  int64
	closed    bool
	mu        sync.RWMutex
}

var (
	_ storage.DocumentStorage = (*Storage)(nil)
	_ storage.MetadataStorage = (*Storage)(nil)
)

// New creates a new empty in-memory storage
func New() *Storage {
	return &Storage{
		snapshots: make(map[string][]byte),
		updates:   make(map[string][][]byte),
	}
}

// Close marks storage as closed, further calls return storage.ErrStorageClosed
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// Load returns the snapshot of a note
func (s *Storage) Load(ctx context.Context, noteID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrStorageClosed
	}

	state, ok := s.snapshots[noteID]
	if !ok {
		return nil, storage.ErrSnapshotNotFound
	}
	return slices.Clone(state), nil
}

// Save replaces the snapshot of a note
func (s *Storage) Save(ctx context.Context, noteID string, state []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStorageClosed
	}

	s.snapshots[noteID] = slices.Clone(state)
	return nil
}

// Delete removes the snapshot and the update log of a note
func (s *Storage) Delete(ctx context.Context, noteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStorageClosed
	}

	delete(s.snapshots, noteID)
	delete(s.updates, noteID)
	return nil
}

// List returns IDs of all stored notes in sorted order
func (s *Storage) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrStorageClosed
	}

	ids := make([]string, 0, len(s.snapshots)+len(s.updates))
	for id := range s.snapshots {
		ids = append(ids, id)
	}
	for id := range s.updates {
		if _, ok := s.snapshots[id]; !ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// SaveUpdate appends an update to the log of a note
func (s *Storage) SaveUpdate(ctx context.Context, noteID string, update []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStorageClosed
	}

	s.updates[noteID] = append(s.updates[noteID], slices.Clone(update))
	return nil
}

// LoadUpdates returns the logged updates of a note in append order
func (s *Storage) LoadUpdates(ctx context.Context, noteID string) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrStorageClosed
	}

	logged := s.updates[noteID]
	result := make([][]byte, 0, len(logged))
	for _, u := range logged {
		result = append(result, slices.Clone(u))
	}
	return result, nil
}

// ClearUpdates truncates the log of a note
func (s *Storage) ClearUpdates(ctx context.Context, noteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStorageClosed
	}

	delete(s.updates, noteID)
	return nil
}

// SaveLastSyncTimestamp saves the timestamp of the last successful sync
func (s *Storage) SaveLastSyncTimestamp(ctx context.Context, timestamp int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStorageClosed
	}

	s.lastSync = timestamp
	return nil
}

// GetLastSyncTimestamp retrieves the timestamp of the last successful sync
func (s *Storage) GetLastSyncTimestamp(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, storage.ErrStorageClosed
	}

	return s.lastSync, nil
}
