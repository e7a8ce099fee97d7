package badger

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"github.com/iudanet/gophnotes/internal/client/storage"
)

var _ storage.DocumentStorage = (*Storage)(nil)

func snapshotKey(noteID string) []byte {
	return append(slices.Clone(prefixSnapshot), noteID...)
}

// logPrefix префикс всех записей журнала заметки
func logPrefix(noteID string) []byte {
	key := append(slices.Clone(prefixUpdate), noteID...)
	return append(key, 0)
}

func updateKey(noteID string, seq uint64) []byte {
	return binary.BigEndian.AppendUint64(logPrefix(noteID), seq)
}

// Load returns the snapshot of a note
func (s *Storage) Load(ctx context.Context, noteID string) ([]byte, error) {
	if s.closed.Load() {
		return nil, storage.ErrStorageClosed
	}

	var state []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey(noteID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrSnapshotNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get snapshot: %w", err)
		}

		state, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		return nil, err
	}

	return state, nil
}

// Save replaces the snapshot of a note
func (s *Storage) Save(ctx context.Context, noteID string, state []byte) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(snapshotKey(noteID), slices.Clone(state))
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

// Delete removes the snapshot and the update log of a note
func (s *Storage) Delete(ctx context.Context, noteID string) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(snapshotKey(noteID)); err != nil {
			return err
		}
		return deletePrefix(txn, logPrefix(noteID))
	})
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}

	return nil
}

// List returns IDs of all notes that have a snapshot or logged updates
func (s *Storage) List(ctx context.Context) ([]string, error) {
	if s.closed.Load() {
		return nil, storage.ErrStorageClosed
	}

	seen := make(map[string]struct{})
	var ids []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		add := func(id string) {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}

		for it.Seek(prefixSnapshot); it.ValidForPrefix(prefixSnapshot); it.Next() {
			add(string(it.Item().Key()[len(prefixSnapshot):]))
		}

		for it.Seek(prefixUpdate); it.ValidForPrefix(prefixUpdate); it.Next() {
			rest := it.Item().Key()[len(prefixUpdate):]
			if i := bytes.IndexByte(rest, 0); i >= 0 {
				add(string(rest[:i]))
			}
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	slices.Sort(ids)
	return ids, nil
}

// SaveUpdate appends an update to the log of a note.
// Номера из общей последовательности монотонны, поэтому порядок ключей
// совпадает с порядком добавления.
func (s *Storage) SaveUpdate(ctx context.Context, noteID string, update []byte) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}

	seq, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("failed to allocate sequence: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(updateKey(noteID, seq), slices.Clone(update))
	})
	if err != nil {
		return fmt.Errorf("failed to append update: %w", err)
	}

	return nil
}

// LoadUpdates returns the logged updates of a note in append order
func (s *Storage) LoadUpdates(ctx context.Context, noteID string) ([][]byte, error) {
	if s.closed.Load() {
		return nil, storage.ErrStorageClosed
	}

	var updates [][]byte
	prefix := logPrefix(noteID)

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			updates = append(updates, value)
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to load updates: %w", err)
	}

	return updates, nil
}

// ClearUpdates truncates the log of a note
func (s *Storage) ClearUpdates(ctx context.Context, noteID string) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return deletePrefix(txn, logPrefix(noteID))
	})
	if err != nil {
		return fmt.Errorf("failed to clear updates: %w", err)
	}

	return nil
}

func deletePrefix(txn *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	// итератор должен быть закрыт до записи в ту же транзакцию
	it.Close()

	for _, key := range keys {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
