// Package storagetest содержит общий набор проверок для реализаций
// storage.DocumentStorage и storage.MetadataStorage.
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophnotes/internal/client/storage"
)

// Storage объединяет интерфейсы, которые реализует каждый адаптер
type Storage interface {
	storage.DocumentStorage
	storage.MetadataStorage
}

// Factory создаёт чистое хранилище для одного подтеста
type Factory func(t *testing.T) Storage

// Run проверяет контракт хранилища документов и метаданных
func Run(t *testing.T, newStorage Factory) {
	t.Helper()

	t.Run("snapshot not found", func(t *testing.T) {
		s := newStorage(t)

		_, err := s.Load(context.Background(), "missing")
		assert.ErrorIs(t, err, storage.ErrSnapshotNotFound)
	})

	t.Run("save and load snapshot", func(t *testing.T) {
		ctx := context.Background()
		s := newStorage(t)

		require.NoError(t, s.Save(ctx, "note-1", []byte("v1")))
		require.NoError(t, s.Save(ctx, "note-1", []byte("v2")))

		state, err := s.Load(ctx, "note-1")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), state)
	})

	t.Run("empty snapshot is a snapshot", func(t *testing.T) {
		ctx := context.Background()
		s := newStorage(t)

		require.NoError(t, s.Save(ctx, "note-1", nil))

		state, err := s.Load(ctx, "note-1")
		require.NoError(t, err)
		assert.Empty(t, state)

		ids, err := s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"note-1"}, ids)
	})

	t.Run("update log keeps append order", func(t *testing.T) {
		ctx := context.Background()
		s := newStorage(t)

		updates, err := s.LoadUpdates(ctx, "note-1")
		require.NoError(t, err)
		assert.Empty(t, updates)

		for _, u := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"} {
			require.NoError(t, s.SaveUpdate(ctx, "note-1", []byte(u)))
		}
		require.NoError(t, s.SaveUpdate(ctx, "note-2", []byte("other")))

		updates, err = s.LoadUpdates(ctx, "note-1")
		require.NoError(t, err)
		require.Len(t, updates, 11)
		assert.Equal(t, []byte("a"), updates[0])
		assert.Equal(t, []byte("j"), updates[9])
		assert.Equal(t, []byte("k"), updates[10])
	})

	t.Run("clear updates", func(t *testing.T) {
		ctx := context.Background()
		s := newStorage(t)

		require.NoError(t, s.Save(ctx, "note-1", []byte("state")))
		require.NoError(t, s.SaveUpdate(ctx, "note-1", []byte("a")))
		require.NoError(t, s.SaveUpdate(ctx, "note-2", []byte("b")))
		require.NoError(t, s.ClearUpdates(ctx, "note-1"))
		require.NoError(t, s.ClearUpdates(ctx, "never-logged"))

		updates, err := s.LoadUpdates(ctx, "note-1")
		require.NoError(t, err)
		assert.Empty(t, updates)

		updates, err = s.LoadUpdates(ctx, "note-2")
		require.NoError(t, err)
		assert.Len(t, updates, 1)

		state, err := s.Load(ctx, "note-1")
		require.NoError(t, err)
		assert.Equal(t, []byte("state"), state, "snapshot must survive log truncation")

		require.NoError(t, s.SaveUpdate(ctx, "note-1", []byte("c")))
		updates, err = s.LoadUpdates(ctx, "note-1")
		require.NoError(t, err)
		assert.Equal(t, [][]byte{[]byte("c")}, updates)
	})

	t.Run("delete removes snapshot and log", func(t *testing.T) {
		ctx := context.Background()
		s := newStorage(t)

		require.NoError(t, s.Save(ctx, "note-1", []byte("state")))
		require.NoError(t, s.SaveUpdate(ctx, "note-1", []byte("a")))
		require.NoError(t, s.Delete(ctx, "note-1"))
		require.NoError(t, s.Delete(ctx, "never-existed"))

		_, err := s.Load(ctx, "note-1")
		assert.ErrorIs(t, err, storage.ErrSnapshotNotFound)

		updates, err := s.LoadUpdates(ctx, "note-1")
		require.NoError(t, err)
		assert.Empty(t, updates)
	})

	t.Run("list", func(t *testing.T) {
		ctx := context.Background()
		s := newStorage(t)

		ids, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, ids)

		require.NoError(t, s.Save(ctx, "b", []byte("state")))
		require.NoError(t, s.SaveUpdate(ctx, "b", []byte("u")))
		require.NoError(t, s.SaveUpdate(ctx, "a", []byte("u")))
		require.NoError(t, s.Save(ctx, "c", []byte("state")))

		ids, err = s.List(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a", "b", "c"}, ids)
	})

	t.Run("last sync timestamp", func(t *testing.T) {
		ctx := context.Background()
		s := newStorage(t)

		ts, err := s.GetLastSyncTimestamp(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), ts)

		require.NoError(t, s.SaveLastSyncTimestamp(ctx, 1700000000123))
		ts, err = s.GetLastSyncTimestamp(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1700000000123), ts)
	})

	t.Run("stored bytes are not aliased", func(t *testing.T) {
		ctx := context.Background()
		s := newStorage(t)

		state := []byte("state")
		update := []byte("update")
		require.NoError(t, s.Save(ctx, "note-1", state))
		require.NoError(t, s.SaveUpdate(ctx, "note-1", update))
		state[0] = 'X'
		update[0] = 'X'

		got, err := s.Load(ctx, "note-1")
		require.NoError(t, err)
		assert.Equal(t, []byte("state"), got)

		updates, err := s.LoadUpdates(ctx, "note-1")
		require.NoError(t, err)
		assert.Equal(t, []byte("update"), updates[0])
	})
}
