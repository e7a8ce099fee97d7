package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iudanet/gophnotes/internal/client/storage"
)

var _ storage.DocumentStorage = (*Storage)(nil)

// wrapClosed приводит ошибку закрытой базы к storage.ErrStorageClosed
func wrapClosed(err error) error {
	if err != nil && strings.Contains(err.Error(), "sql: database is closed") {
		return fmt.Errorf("%w: %w", storage.ErrStorageClosed, err)
	}
	return err
}

// Load returns the snapshot of a note
func (s *Storage) Load(ctx context.Context, noteID string) ([]byte, error) {
	var state []byte

	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM snapshots WHERE note_id = ?`, noteID,
	).Scan(&state)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", wrapClosed(err))
	}

	return state, nil
}

// Save replaces the snapshot of a note
func (s *Storage) Save(ctx context.Context, noteID string, state []byte) error {
	query := `
		INSERT INTO snapshots (note_id, state, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(note_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at
	`

	// nil превратился бы в NULL
	if state == nil {
		state = []byte{}
	}

	if _, err := s.db.ExecContext(ctx, query, noteID, state, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", wrapClosed(err))
	}

	return nil
}

// Delete removes the snapshot and the update log of a note
func (s *Storage) Delete(ctx context.Context, noteID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", wrapClosed(err))
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE note_id = ?`, noteID); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM updates WHERE note_id = ?`, noteID); err != nil {
		return fmt.Errorf("failed to delete updates: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// List returns IDs of all notes that have a snapshot or logged updates
func (s *Storage) List(ctx context.Context) ([]string, error) {
	query := `
		SELECT note_id FROM snapshots
		UNION
		SELECT note_id FROM updates
		ORDER BY note_id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", wrapClosed(err))
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan note id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notes: %w", err)
	}

	return ids, nil
}

// SaveUpdate appends an update to the log of a note
func (s *Storage) SaveUpdate(ctx context.Context, noteID string, update []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO updates (note_id, payload, created_at) VALUES (?, ?, ?)`,
		noteID, update, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to append update: %w", wrapClosed(err))
	}

	return nil
}

// LoadUpdates returns the logged updates of a note in append order
func (s *Storage) LoadUpdates(ctx context.Context, noteID string) ([][]byte, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM updates WHERE note_id = ? ORDER BY seq`, noteID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load updates: %w", wrapClosed(err))
	}
	defer rows.Close()

	var updates [][]byte
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan update: %w", err)
		}
		updates = append(updates, payload)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating updates: %w", err)
	}

	return updates, nil
}

// ClearUpdates truncates the log of a note
func (s *Storage) ClearUpdates(ctx context.Context, noteID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM updates WHERE note_id = ?`, noteID); err != nil {
		return fmt.Errorf("failed to clear updates: %w", wrapClosed(err))
	}

	return nil
}
