package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophnotes/internal/client/storage"
	"github.com/iudanet/gophnotes/internal/client/storage/boltdb"
	"github.com/iudanet/gophnotes/internal/client/storage/memory"
	"github.com/iudanet/gophnotes/internal/crdt"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T, docs storage.DocumentStorage, opts ...Option) *Store {
	t.Helper()

	opts = append([]Option{WithLogger(discardLogger()), WithDebounce(time.Hour)}, opts...)
	return New(docs, opts...)
}

func TestStore_CreateAndOpen(t *testing.T) {
	ctx := context.Background()
	docs := memory.New()
	s := newTestStore(t, docs)

	doc, err := s.Create(ctx, "note-1")
	require.NoError(t, err)
	require.NoError(t, doc.SetTitle("Groceries"))

	// кеш отдаёт тот же экземпляр
	same, err := s.Open(ctx, "note-1")
	require.NoError(t, err)
	assert.Same(t, doc, same)

	_, err = s.Create(ctx, "note-1")
	assert.ErrorIs(t, err, ErrNoteExists)

	_, err = s.Open(ctx, "missing")
	assert.ErrorIs(t, err, ErrNoteNotFound)

	ids, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"note-1"}, ids)
}

func TestStore_MutationIsLoggedSynchronously(t *testing.T) {
	ctx := context.Background()
	docs := memory.New()
	s := newTestStore(t, docs)

	doc, err := s.Create(ctx, "note-1")
	require.NoError(t, err)

	require.NoError(t, doc.AppendText("milk"))

	updates, err := docs.LoadUpdates(ctx, "note-1")
	require.NoError(t, err)
	assert.Len(t, updates, 1, "update must be in the log when the mutation returns")
}

// Пользователь создаёт заметку, пишет "milk" и процесс падает до компакции.
// После перезапуска заметка восстанавливается из снапшота и журнала.
func TestStore_RecoversAfterCrash(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "notes.db")

	docs, err := boltdb.New(ctx, dbPath)
	require.NoError(t, err)

	s := newTestStore(t, docs)
	doc, err := s.Create(ctx, "groceries")
	require.NoError(t, err)
	require.NoError(t, doc.SetTitle("Groceries"))
	require.NoError(t, doc.AppendText("milk"))

	// падение: ни Flush, ни Close у store
	require.NoError(t, docs.Close())

	reopened, err := boltdb.New(ctx, dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	restarted := newTestStore(t, reopened)
	restored, err := restarted.Open(ctx, "groceries")
	require.NoError(t, err)

	assert.Equal(t, "Groceries", restored.Title())
	assert.Equal(t, "milk", restored.Content())
}

func TestStore_CompactionEquivalence(t *testing.T) {
	ctx := context.Background()
	docs := memory.New()
	s := newTestStore(t, docs)

	doc, err := s.Create(ctx, "note-1")
	require.NoError(t, err)
	require.NoError(t, doc.SetTitle("list"))
	for _, item := range []string{"milk\n", "eggs\n", "bread\n"} {
		require.NoError(t, doc.AppendText(item))
	}
	require.NoError(t, doc.DeleteText(0, 5))

	// состояние из снапшота и журнала
	replayed, err := newTestStore(t, docs).Open(ctx, "note-1")
	require.NoError(t, err)
	beforeState, err := replayed.Encode()
	require.NoError(t, err)

	require.NoError(t, s.Compact(ctx, "note-1"))

	updates, err := docs.LoadUpdates(ctx, "note-1")
	require.NoError(t, err)
	assert.Empty(t, updates)

	compacted, err := newTestStore(t, docs).Open(ctx, "note-1")
	require.NoError(t, err)
	afterState, err := compacted.Encode()
	require.NoError(t, err)

	assert.Equal(t, beforeState, afterState)
	assert.Equal(t, "eggs\nbread\n", compacted.Content())
}

func TestStore_ThresholdCompaction(t *testing.T) {
	ctx := context.Background()
	docs := memory.New()
	s := newTestStore(t, docs, WithThreshold(5))

	doc, err := s.Create(ctx, "note-1")
	require.NoError(t, err)

	for range 4 {
		require.NoError(t, doc.AppendText("x"))
	}
	updates, err := docs.LoadUpdates(ctx, "note-1")
	require.NoError(t, err)
	assert.Len(t, updates, 4)

	require.NoError(t, doc.AppendText("x"))
	updates, err = docs.LoadUpdates(ctx, "note-1")
	require.NoError(t, err)
	assert.Empty(t, updates)

	state, err := docs.Load(ctx, "note-1")
	require.NoError(t, err)
	fromSnapshot, err := crdt.Decode(state)
	require.NoError(t, err)
	assert.Equal(t, "xxxxx", fromSnapshot.Content())
}

func TestStore_OpenCompactsLongLog(t *testing.T) {
	ctx := context.Background()
	docs := memory.New()

	writer := newTestStore(t, docs)
	doc, err := writer.Create(ctx, "note-1")
	require.NoError(t, err)
	for range 6 {
		require.NoError(t, doc.AppendText("y"))
	}

	reader := newTestStore(t, docs, WithThreshold(5))
	restored, err := reader.Open(ctx, "note-1")
	require.NoError(t, err)
	assert.Equal(t, "yyyyyy", restored.Content())

	updates, err := docs.LoadUpdates(ctx, "note-1")
	require.NoError(t, err)
	assert.Empty(t, updates)
}

func TestStore_DebouncedCompaction(t *testing.T) {
	ctx := context.Background()
	docs := memory.New()
	s := newTestStore(t, docs, WithDebounce(20*time.Millisecond))

	doc, err := s.Create(ctx, "note-1")
	require.NoError(t, err)
	require.NoError(t, doc.AppendText("milk"))

	require.Eventually(t, func() bool {
		updates, err := docs.LoadUpdates(ctx, "note-1")
		return err == nil && len(updates) == 0
	}, 2*time.Second, 10*time.Millisecond)

	state, err := docs.Load(ctx, "note-1")
	require.NoError(t, err)
	fromSnapshot, err := crdt.Decode(state)
	require.NoError(t, err)
	assert.Equal(t, "milk", fromSnapshot.Content())
}

func TestStore_AppendFailureIsFatal(t *testing.T) {
	ctx := context.Background()
	diskFull := errors.New("disk full")
	inner := memory.New()

	docs := &storage.DocumentStorageMock{
		LoadFunc:        inner.Load,
		SaveFunc:        inner.Save,
		DeleteFunc:      inner.Delete,
		ListFunc:        inner.List,
		LoadUpdatesFunc: inner.LoadUpdates,
		ClearUpdatesFunc: func(ctx context.Context, noteID string) error {
			return inner.ClearUpdates(ctx, noteID)
		},
		SaveUpdateFunc: func(ctx context.Context, noteID string, update []byte) error {
			return diskFull
		},
	}
	s := newTestStore(t, docs)

	doc, err := s.Create(ctx, "note-1")
	require.NoError(t, err)

	err = doc.AppendText("milk")
	assert.ErrorIs(t, err, ErrStorageFatal)
	assert.ErrorIs(t, err, diskFull)
	assert.Len(t, docs.SaveUpdateCalls(), 1)
}

func TestStore_FailedSnapshotKeepsLog(t *testing.T) {
	ctx := context.Background()
	inner := memory.New()
	failSave := false

	docs := &storage.DocumentStorageMock{
		LoadFunc: inner.Load,
		SaveFunc: func(ctx context.Context, noteID string, state []byte) error {
			if failSave {
				return errors.New("read-only filesystem")
			}
			return inner.Save(ctx, noteID, state)
		},
		DeleteFunc:       inner.Delete,
		ListFunc:         inner.List,
		LoadUpdatesFunc:  inner.LoadUpdates,
		ClearUpdatesFunc: inner.ClearUpdates,
		SaveUpdateFunc:   inner.SaveUpdate,
	}
	s := newTestStore(t, docs)

	doc, err := s.Create(ctx, "note-1")
	require.NoError(t, err)
	require.NoError(t, doc.AppendText("milk"))

	failSave = true
	assert.Error(t, s.Compact(ctx, "note-1"))
	assert.Empty(t, docs.ClearUpdatesCalls())

	updates, err := inner.LoadUpdates(ctx, "note-1")
	require.NoError(t, err)
	assert.Len(t, updates, 1)
}

func TestStore_Import(t *testing.T) {
	ctx := context.Background()
	docs := memory.New()
	s := newTestStore(t, docs)

	remote := crdt.New()
	require.NoError(t, remote.SetTitle("From server"))
	require.NoError(t, remote.AppendText("hello"))
	state, err := remote.Encode()
	require.NoError(t, err)

	doc, err := s.Import(ctx, "note-1", state)
	require.NoError(t, err)
	assert.Equal(t, "From server", doc.Title())

	snapshot, err := docs.Load(ctx, "note-1")
	require.NoError(t, err)
	assert.Equal(t, state, snapshot)

	// повторный импорт сливается с локальной копией
	require.NoError(t, remote.AppendText(" world"))
	state, err = remote.Encode()
	require.NoError(t, err)

	again, err := s.Import(ctx, "note-1", state)
	require.NoError(t, err)
	assert.Same(t, doc, again)
	assert.Equal(t, "hello world", again.Content())

	_, err = s.Import(ctx, "note-2", []byte("garbage"))
	assert.ErrorIs(t, err, crdt.ErrCorruptState)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	docs := memory.New()
	s := newTestStore(t, docs, WithDebounce(10*time.Millisecond))

	doc, err := s.Create(ctx, "note-1")
	require.NoError(t, err)
	require.NoError(t, doc.AppendText("milk"))

	require.NoError(t, s.Delete(ctx, "note-1"))

	_, err = s.Open(ctx, "note-1")
	assert.ErrorIs(t, err, ErrNoteNotFound)

	// отменённый таймер не должен воскресить снапшот
	time.Sleep(50 * time.Millisecond)
	_, err = docs.Load(ctx, "note-1")
	assert.ErrorIs(t, err, storage.ErrSnapshotNotFound)
}

func TestStore_FlushAndClose(t *testing.T) {
	ctx := context.Background()
	docs := memory.New()
	s := newTestStore(t, docs)

	a, err := s.Create(ctx, "a")
	require.NoError(t, err)
	b, err := s.Create(ctx, "b")
	require.NoError(t, err)
	require.NoError(t, a.AppendText("1"))
	require.NoError(t, b.AppendText("2"))

	require.NoError(t, s.Flush(ctx))
	for _, id := range []string{"a", "b"} {
		updates, err := docs.LoadUpdates(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, updates, id)
	}

	require.NoError(t, a.AppendText("3"))
	require.NoError(t, s.Close(ctx))

	state, err := docs.Load(ctx, "a")
	require.NoError(t, err)
	fromSnapshot, err := crdt.Decode(state)
	require.NoError(t, err)
	assert.Equal(t, "13", fromSnapshot.Content())

	_, err = s.Open(ctx, "a")
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestStore_RemoteUpdatesAreLogged(t *testing.T) {
	ctx := context.Background()
	docs := memory.New()
	s := newTestStore(t, docs)

	doc, err := s.Create(ctx, "note-1")
	require.NoError(t, err)

	remote := crdt.New()
	require.NoError(t, remote.AppendText("from another device"))
	state, err := remote.Encode()
	require.NoError(t, err)

	require.NoError(t, doc.ApplyUpdate(state, crdt.OriginRemote))

	updates, err := docs.LoadUpdates(ctx, "note-1")
	require.NoError(t, err)
	assert.Len(t, updates, 1)
}

func TestStore_CorruptLogEntryFailsOpen(t *testing.T) {
	ctx := context.Background()
	docs := memory.New()

	doc, err := newTestStore(t, docs, WithThreshold(1)).Create(ctx, "note-1")
	require.NoError(t, err)
	require.NoError(t, doc.AppendText("milk"))
	require.NoError(t, docs.SaveUpdate(ctx, "note-1", []byte("torn write")))

	before, err := docs.LoadUpdates(ctx, "note-1")
	require.NoError(t, err)

	// порог 1: без ошибки Open сразу свернул бы журнал
	_, err = newTestStore(t, docs, WithThreshold(1)).Open(ctx, "note-1")
	require.ErrorIs(t, err, ErrCorruptLog)
	assert.ErrorIs(t, err, crdt.ErrCorruptUpdate)

	after, err := docs.LoadUpdates(ctx, "note-1")
	require.NoError(t, err)
	assert.Equal(t, before, after, "log must stay untouched")
}

func TestStore_OutOfOrderLogSurvivesCompaction(t *testing.T) {
	ctx := context.Background()
	docs := memory.New()

	remote := crdt.New()
	var updates [][]byte
	remote.Observe(func(update []byte, _ crdt.Origin) error {
		updates = append(updates, update)
		return nil
	})
	require.NoError(t, remote.AppendText("milk"))
	require.NoError(t, remote.AppendText(", eggs"))

	s := newTestStore(t, docs)
	doc, err := s.Create(ctx, "note-1")
	require.NoError(t, err)

	// зависимое изменение пришло раньше своей зависимости
	require.NoError(t, doc.ApplyUpdate(updates[1], crdt.OriginRemote))
	logged, err := docs.LoadUpdates(ctx, "note-1")
	require.NoError(t, err)
	require.Len(t, logged, 1)

	require.NoError(t, s.Compact(ctx, "note-1"))

	reopened, err := newTestStore(t, docs).Open(ctx, "note-1")
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.PendingChanges())

	require.NoError(t, reopened.ApplyUpdate(updates[0], crdt.OriginRemote))
	assert.Equal(t, "milk, eggs", reopened.Content())
}
