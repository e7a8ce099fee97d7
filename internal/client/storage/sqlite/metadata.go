package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iudanet/gophnotes/internal/client/storage"
)

var _ storage.MetadataStorage = (*Storage)(nil)

const keyLastSyncTimestamp = "last_sync_timestamp"

// SaveLastSyncTimestamp saves the timestamp of the last successful sync
func (s *Storage) SaveLastSyncTimestamp(ctx context.Context, timestamp int64) error {
	query := `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`

	if _, err := s.db.ExecContext(ctx, query, keyLastSyncTimestamp, timestamp); err != nil {
		return fmt.Errorf("failed to save last sync timestamp: %w", wrapClosed(err))
	}

	return nil
}

// GetLastSyncTimestamp retrieves the timestamp of the last successful sync
// Returns 0 if no sync has been performed yet
func (s *Storage) GetLastSyncTimestamp(ctx context.Context) (int64, error) {
	var timestamp int64

	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM metadata WHERE key = ?`, keyLastSyncTimestamp,
	).Scan(&timestamp)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get last sync timestamp: %w", wrapClosed(err))
	}

	return timestamp, nil
}
