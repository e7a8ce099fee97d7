package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"
	"slices"

	"go.etcd.io/bbolt"

	"github.com/iudanet/gophnotes/internal/client/storage"
)

var _ storage.DocumentStorage = (*Storage)(nil)

// snapshotVersion первый байт записи снапшота. bbolt не отличает пустое
// значение от отсутствующего, а снапшот пустого документа пуст.
const snapshotVersion byte = 1

// Load returns the snapshot of a note
func (s *Storage) Load(ctx context.Context, noteID string) ([]byte, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var state []byte

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSnapshots)
		if bucket == nil {
			return fmt.Errorf("snapshots bucket not found")
		}

		data := bucket.Get([]byte(noteID))
		if len(data) == 0 {
			return storage.ErrSnapshotNotFound
		}
		if data[0] != snapshotVersion {
			return fmt.Errorf("unsupported snapshot version %d", data[0])
		}

		// Данные валидны только внутри транзакции
		state = slices.Clone(data[1:])
		return nil
	})

	if err != nil {
		return nil, err
	}

	return state, nil
}

// Save replaces the snapshot of a note
func (s *Storage) Save(ctx context.Context, noteID string, state []byte) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSnapshots)
		if bucket == nil {
			return fmt.Errorf("snapshots bucket not found")
		}

		value := make([]byte, 0, len(state)+1)
		value = append(value, snapshotVersion)
		value = append(value, state...)

		if err := bucket.Put([]byte(noteID), value); err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}

		return nil
	})

	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// Delete removes the snapshot and the update log of a note
func (s *Storage) Delete(ctx context.Context, noteID string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketSnapshots).Delete([]byte(noteID)); err != nil {
			return fmt.Errorf("failed to delete snapshot: %w", err)
		}
		return deleteLog(tx, noteID)
	})

	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// List returns IDs of all notes that have a snapshot or logged updates
func (s *Storage) List(ctx context.Context) ([]string, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	seen := make(map[string]struct{})
	var ids []string

	err := s.db.View(func(tx *bbolt.Tx) error {
		add := func(k []byte) {
			id := string(k)
			if _, ok := seen[id]; ok {
				return
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}

		if err := tx.Bucket(bucketSnapshots).ForEach(func(k, _ []byte) error {
			add(k)
			return nil
		}); err != nil {
			return err
		}

		// Вложенные buckets имеют nil value
		return tx.Bucket(bucketUpdates).ForEach(func(k, v []byte) error {
			if v == nil {
				add(k)
			}
			return nil
		})
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	slices.Sort(ids)
	return ids, nil
}

// SaveUpdate appends an update to the log of a note.
// Ключ записи - порядковый номер из NextSequence в big endian, поэтому
// курсор bbolt возвращает записи в порядке добавления.
func (s *Storage) SaveUpdate(ctx context.Context, noteID string, update []byte) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		log, err := tx.Bucket(bucketUpdates).CreateBucketIfNotExists([]byte(noteID))
		if err != nil {
			return fmt.Errorf("failed to create update log: %w", err)
		}

		seq, err := log.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate sequence: %w", err)
		}

		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)

		if err := log.Put(key, update); err != nil {
			return fmt.Errorf("failed to append update: %w", err)
		}

		return nil
	})

	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// LoadUpdates returns the logged updates of a note in append order
func (s *Storage) LoadUpdates(ctx context.Context, noteID string) ([][]byte, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var updates [][]byte

	err := s.db.View(func(tx *bbolt.Tx) error {
		log := tx.Bucket(bucketUpdates).Bucket([]byte(noteID))
		if log == nil {
			return nil
		}

		return log.ForEach(func(_, v []byte) error {
			updates = append(updates, slices.Clone(v))
			return nil
		})
	})

	if err != nil {
		return nil, fmt.Errorf("failed to load updates: %w", err)
	}

	return updates, nil
}

// ClearUpdates truncates the log of a note
func (s *Storage) ClearUpdates(ctx context.Context, noteID string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return deleteLog(tx, noteID)
	})

	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// deleteLog удаляет вложенный bucket журнала, отсутствие журнала не ошибка
func deleteLog(tx *bbolt.Tx, noteID string) error {
	updates := tx.Bucket(bucketUpdates)
	if updates.Bucket([]byte(noteID)) == nil {
		return nil
	}
	if err := updates.DeleteBucket([]byte(noteID)); err != nil {
		return fmt.Errorf("failed to delete update log: %w", err)
	}
	return nil
}
