package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/iudanet/gophnotes/internal/client/storage"
)

var _ storage.MetadataStorage = (*Storage)(nil)

// SaveLastSyncTimestamp saves the timestamp of the last successful sync
func (s *Storage) SaveLastSyncTimestamp(ctx context.Context, timestamp int64) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}

	value := binary.BigEndian.AppendUint64(nil, uint64(timestamp))
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyLastSync, value)
	})
	if err != nil {
		return fmt.Errorf("failed to save last sync timestamp: %w", err)
	}

	return nil
}

// GetLastSyncTimestamp retrieves the timestamp of the last successful sync
// Returns 0 if no sync has been performed yet
func (s *Storage) GetLastSyncTimestamp(ctx context.Context) (int64, error) {
	if s.closed.Load() {
		return 0, storage.ErrStorageClosed
	}

	var timestamp int64

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyLastSync)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("invalid timestamp length %d", len(val))
			}
			timestamp = int64(binary.BigEndian.Uint64(val))
			return nil
		})
	})

	if err != nil {
		return 0, fmt.Errorf("failed to get last sync timestamp: %w", err)
	}

	return timestamp, nil
}
