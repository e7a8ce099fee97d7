package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophnotes/internal/crdt"
	"github.com/iudanet/gophnotes/internal/server/storage"
)

func encodedNote(t *testing.T, title, text string) (*crdt.Document, []byte) {
	t.Helper()

	doc := crdt.New()
	require.NoError(t, doc.SetTitle(title))
	if text != "" {
		require.NoError(t, doc.AppendText(text))
	}
	state, err := doc.Encode()
	require.NoError(t, err)
	return doc, state
}

func TestStorage_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := New()
	at := time.UnixMilli(1700000000000)

	_, state := encodedNote(t, "Groceries", "milk")

	note, err := s.CreateNote(ctx, "note-1", state, at)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", note.Title)
	assert.Equal(t, at, note.CreatedAt)
	assert.False(t, note.Deleted())

	_, err = s.CreateNote(ctx, "note-1", state, at)
	assert.ErrorIs(t, err, storage.ErrNoteExists)

	got, err := s.GetNote(ctx, "note-1")
	require.NoError(t, err)
	assert.Equal(t, state, got.Content)

	_, err = s.GetNote(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNoteNotFound)
}

func TestStorage_CreateEmptyNote(t *testing.T) {
	s := New()

	note, err := s.CreateNote(context.Background(), "note-1", nil, time.Now())
	require.NoError(t, err)
	assert.Empty(t, note.Title)
	assert.Empty(t, note.Content)
}

func TestStorage_CreateCorruptState(t *testing.T) {
	s := New()

	_, err := s.CreateNote(context.Background(), "note-1", []byte("garbage"), time.Now())
	assert.ErrorIs(t, err, crdt.ErrCorruptState)

	_, err = s.GetNote(context.Background(), "note-1")
	assert.ErrorIs(t, err, storage.ErrNoteNotFound)
}

func TestStorage_ApplyUpdateAndDelta(t *testing.T) {
	ctx := context.Background()
	s := New()

	client, state := encodedNote(t, "Groceries", "milk")
	_, err := s.CreateNote(ctx, "note-1", state, time.UnixMilli(1000))
	require.NoError(t, err)

	before := client.StateVector()
	require.NoError(t, client.AppendText(", eggs"))
	delta, err := client.Delta(before)
	require.NoError(t, err)

	require.NoError(t, s.ApplyUpdate(ctx, "note-1", delta, time.UnixMilli(2000)))
	// повтор ничего не меняет
	require.NoError(t, s.ApplyUpdate(ctx, "note-1", delta, time.UnixMilli(3000)))

	note, err := s.GetNote(ctx, "note-1")
	require.NoError(t, err)
	expected, err := client.Encode()
	require.NoError(t, err)
	assert.Equal(t, expected, note.Content)
	assert.Equal(t, time.UnixMilli(3000), note.UpdatedAt)

	// отстающая реплика получает недостающее
	missing, err := s.Delta(ctx, "note-1", before)
	require.NoError(t, err)
	stale, err := crdt.Decode(state)
	require.NoError(t, err)
	require.NoError(t, stale.ApplyUpdate(missing, crdt.OriginRemote))
	assert.Equal(t, "milk, eggs", stale.Content())

	err = s.ApplyUpdate(ctx, "note-1", []byte("garbage"), time.Now())
	assert.ErrorIs(t, err, crdt.ErrCorruptUpdate)

	err = s.ApplyUpdate(ctx, "missing", delta, time.Now())
	assert.ErrorIs(t, err, storage.ErrNoteNotFound)
}

func TestStorage_Delete(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, state := encodedNote(t, "Groceries", "")
	_, err := s.CreateNote(ctx, "note-1", state, time.UnixMilli(1000))
	require.NoError(t, err)

	require.NoError(t, s.DeleteNote(ctx, "note-1", time.UnixMilli(5000)))
	assert.ErrorIs(t, s.DeleteNote(ctx, "note-1", time.UnixMilli(6000)), storage.ErrNoteNotFound)

	_, err = s.GetNote(ctx, "note-1")
	assert.ErrorIs(t, err, storage.ErrNoteNotFound)
	assert.ErrorIs(t, s.ApplyUpdate(ctx, "note-1", state, time.Now()), storage.ErrNoteNotFound)

	_, err = s.Delta(ctx, "note-1", nil)
	assert.ErrorIs(t, err, storage.ErrNoteNotFound)

	// удалённый ID нельзя создать заново
	_, err = s.CreateNote(ctx, "note-1", state, time.Now())
	assert.ErrorIs(t, err, storage.ErrNoteExists)
}

func TestStorage_NotesChangedSince(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, state := encodedNote(t, "Note", "")
	for i, id := range []string{"c", "a", "b"} {
		_, err := s.CreateNote(ctx, id, state, time.UnixMilli(int64(1000*(i+1))))
		require.NoError(t, err)
	}
	require.NoError(t, s.DeleteNote(ctx, "c", time.UnixMilli(4000)))

	tests := []struct {
		name  string
		since int64
		want  []string
	}{
		{name: "all", since: 0, want: []string{"a", "b", "c"}},
		{name: "inclusive bound", since: 2000, want: []string{"a", "b", "c"}},
		{name: "only deletion", since: 3500, want: []string{"c"}},
		{name: "nothing", since: 5000, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notes, err := s.NotesChangedSince(ctx, time.UnixMilli(tt.since))
			require.NoError(t, err)

			ids := make([]string, 0, len(notes))
			for _, n := range notes {
				ids = append(ids, n.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	notes, err := s.NotesChangedSince(ctx, time.UnixMilli(3500))
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.True(t, notes[0].Deleted())
}
