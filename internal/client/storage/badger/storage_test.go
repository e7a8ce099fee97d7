package badger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophnotes/internal/client/storage"
	"github.com/iudanet/gophnotes/internal/client/storage/storagetest"
)

func TestStorage_Contract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storagetest.Storage {
		s, err := New(InMemoryConfig())
		require.NoError(t, err)
		t.Cleanup(func() {
			require.NoError(t, s.Close())
		})
		return s
	})
}

func TestNew_RequiresPath(t *testing.T) {
	s, err := New(Config{})
	assert.Error(t, err)
	assert.Nil(t, s)
}

func TestStorage_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig(filepath.Join(t.TempDir(), "badger"))
	cfg.GCInterval = 0

	s, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, s.SaveUpdate(ctx, "note-1", []byte("u1")))
	require.NoError(t, s.SaveLastSyncTimestamp(ctx, 7))
	require.NoError(t, s.Close())

	reopened, err := New(cfg)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, reopened.Close())
	}()

	// после переоткрытия номера продолжаются, порядок журнала сохраняется
	require.NoError(t, reopened.SaveUpdate(ctx, "note-1", []byte("u2")))

	updates, err := reopened.LoadUpdates(ctx, "note-1")
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("u1"), []byte("u2")}, updates)

	ts, err := reopened.GetLastSyncTimestamp(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), ts)
}

func TestStorage_PrefixIsolation(t *testing.T) {
	ctx := context.Background()
	s, err := New(InMemoryConfig())
	require.NoError(t, err)
	defer s.Close()

	// "a" не должна видеть журнал "ab"
	require.NoError(t, s.SaveUpdate(ctx, "ab", []byte("x")))
	updates, err := s.LoadUpdates(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, updates)

	require.NoError(t, s.ClearUpdates(ctx, "a"))
	updates, err = s.LoadUpdates(ctx, "ab")
	require.NoError(t, err)
	assert.Len(t, updates, 1)
}

func TestStorage_Closed(t *testing.T) {
	ctx := context.Background()
	s, err := New(InMemoryConfig())
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Load(ctx, "note-1")
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	assert.ErrorIs(t, s.Save(ctx, "note-1", nil), storage.ErrStorageClosed)
}
