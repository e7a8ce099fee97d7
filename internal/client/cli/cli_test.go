package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpClient "github.com/iudanet/gophnotes/internal/client/api"
	"github.com/iudanet/gophnotes/internal/client/data"
	"github.com/iudanet/gophnotes/internal/client/iocli"
	"github.com/iudanet/gophnotes/internal/client/storage/memory"
	clientsync "github.com/iudanet/gophnotes/internal/client/sync"
	"github.com/iudanet/gophnotes/internal/config"
	"github.com/iudanet/gophnotes/internal/crdt"
	"github.com/iudanet/gophnotes/pkg/api"
)

// fakeBackend сервер синхронизации на моках
type fakeBackend struct {
	*clientsync.APIClientMock
	*data.RemoteMock
}

// output собирает всё, что команда напечатала
type output struct {
	lines []string
	mu    sync.Mutex
}

func (o *output) add(s string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lines = append(o.lines, s)
}

func (o *output) String() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return strings.Join(o.lines, "")
}

func newMockIO(out *output, answers ...string) *iocli.IOMock {
	return &iocli.IOMock{
		PrintlnFunc: func(a ...any) {
			out.add(fmt.Sprintln(a...))
		},
		PrintfFunc: func(format string, a ...any) {
			out.add(fmt.Sprintf(format, a...))
		},
		WriteFunc: func(p []byte) (int, error) {
			out.add(string(p))
			return len(p), nil
		},
		ReadInputFunc: func(prompt string) (string, error) {
			out.add(prompt)
			if len(answers) == 0 {
				return "", io.EOF
			}
			answer := answers[0]
			answers = answers[1:]
			return answer, nil
		},
	}
}

func offlineErr() error {
	return fmt.Errorf("%w: request failed: %w", httpClient.ErrTransport, errors.New("connection refused"))
}

func onlineBackend() *fakeBackend {
	return &fakeBackend{
		APIClientMock: &clientsync.APIClientMock{
			PushFunc: func(_ context.Context, req api.PushRequest) (*api.PushResponse, error) {
				resp := &api.PushResponse{ServerTime: 1700000000000}
				seen := map[string]bool{}
				for _, u := range req.Updates {
					if !seen[u.NoteID] {
						seen[u.NoteID] = true
						resp.Processed = append(resp.Processed, u.NoteID)
					}
				}
				return resp, nil
			},
			PullFunc: func(context.Context, api.PullRequest) (*api.PullResponse, error) {
				return &api.PullResponse{ServerTime: 1700000000000}, nil
			},
		},
		RemoteMock: &data.RemoteMock{
			CreateNoteFunc: func(_ context.Context, req api.CreateNoteRequest) (*api.CreateNoteResponse, error) {
				return &api.CreateNoteResponse{ID: req.ID, CreatedAt: 1700000000000}, nil
			},
			DeleteNoteFunc: func(context.Context, string) (*api.DeleteNoteResponse, error) {
				return &api.DeleteNoteResponse{DeletedAt: 1700000000000}, nil
			},
		},
	}
}

func offlineBackend() *fakeBackend {
	return &fakeBackend{
		APIClientMock: &clientsync.APIClientMock{
			PushFunc: func(context.Context, api.PushRequest) (*api.PushResponse, error) {
				return nil, offlineErr()
			},
			PullFunc: func(context.Context, api.PullRequest) (*api.PullResponse, error) {
				return nil, offlineErr()
			},
		},
		RemoteMock: &data.RemoteMock{
			CreateNoteFunc: func(context.Context, api.CreateNoteRequest) (*api.CreateNoteResponse, error) {
				return nil, offlineErr()
			},
			DeleteNoteFunc: func(context.Context, string) (*api.DeleteNoteResponse, error) {
				return nil, offlineErr()
			},
		},
	}
}

func newTestCli(t *testing.T, ioc iocli.IO, backend *fakeBackend) *Cli {
	t.Helper()

	cfg := config.Default()
	cfg.Debounce = time.Hour

	c := New(ioc, slog.New(slog.NewTextHandler(io.Discard, nil)), cfg, memory.New(), backend, nil)
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

func createdID(t *testing.T, out *output) string {
	t.Helper()

	for _, line := range strings.Split(out.String(), "\n") {
		if id, ok := strings.CutPrefix(line, "✓ Note created: "); ok {
			return strings.TrimSpace(id)
		}
	}
	t.Fatalf("no note id in output: %q", out.String())
	return ""
}

func TestCli_runNew_Online(t *testing.T) {
	ctx := context.Background()
	out := &output{}
	backend := onlineBackend()
	c := newTestCli(t, newMockIO(out), backend)

	require.NoError(t, c.runNew(ctx, "Groceries", "milk", true))
	id := createdID(t, out)

	calls := backend.CreateNoteCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, id, calls[0].Req.ID)
	assert.Equal(t, "Groceries", calls[0].Req.Title)

	// полное состояние уже на сервере, отправлять нечего
	assert.Empty(t, backend.PushCalls())
	assert.NotContains(t, out.String(), "Offline")
}

func TestCli_runNew_Offline(t *testing.T) {
	ctx := context.Background()
	out := &output{}
	c := newTestCli(t, newMockIO(out), offlineBackend())

	require.NoError(t, c.runNew(ctx, "Draft", "text", false))
	id := createdID(t, out)
	assert.Contains(t, out.String(), "Offline: changes saved locally")

	note, err := c.notes.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Draft", note.Title)
	assert.Equal(t, "text", note.Content)
}

func TestCli_runList(t *testing.T) {
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		out := &output{}
		c := newTestCli(t, newMockIO(out), onlineBackend())

		require.NoError(t, c.runList(ctx, false))
		assert.Contains(t, out.String(), "=== Notes ===")
		assert.Contains(t, out.String(), "No notes found.")
	})

	t.Run("with notes", func(t *testing.T) {
		out := &output{}
		c := newTestCli(t, newMockIO(out), onlineBackend())
		require.NoError(t, c.runNew(ctx, "Work", "", true))
		require.NoError(t, c.runNew(ctx, "Groceries", "milk", false))

		out.lines = nil
		require.NoError(t, c.runList(ctx, false))
		text := out.String()
		assert.Contains(t, text, "Groceries (4 chars)")
		assert.Contains(t, text, "★ ")
		assert.Contains(t, text, "Total: 2 note(s)")
		assert.Less(t, strings.Index(text, "Groceries"), strings.Index(text, "Work"))

		out.lines = nil
		require.NoError(t, c.runList(ctx, true))
		assert.NotContains(t, out.String(), "Groceries")
		assert.Contains(t, out.String(), "Total: 1 note(s)")
	})
}

func TestCli_runAppend(t *testing.T) {
	ctx := context.Background()
	out := &output{}
	mockIO := newMockIO(out, "eggs")
	backend := onlineBackend()
	c := newTestCli(t, mockIO, backend)

	require.NoError(t, c.runNew(ctx, "Groceries", "milk", false))
	id := createdID(t, out)

	require.NoError(t, c.runAppend(ctx, id, ", bread"))
	// текст не передан аргументами: читаем строку
	require.NoError(t, c.runAppend(ctx, id, ""))
	require.Len(t, mockIO.ReadInputCalls(), 1)

	note, err := c.notes.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "milk, breadeggs", note.Content)
	assert.Len(t, backend.PushCalls(), 2, "each edit is pushed right away")

	// ввод закончился
	assert.Error(t, c.runAppend(ctx, id, ""))
	assert.Error(t, c.runAppend(ctx, "missing", "x"))
}

func TestCli_runTitleAndStar(t *testing.T) {
	ctx := context.Background()
	out := &output{}
	c := newTestCli(t, newMockIO(out), onlineBackend())

	require.NoError(t, c.runNew(ctx, "Old", "", false))
	id := createdID(t, out)

	require.NoError(t, c.runTitle(ctx, id, "New title"))
	require.NoError(t, c.runStar(ctx, id, true))

	out.lines = nil
	require.NoError(t, c.runShow(ctx, id))
	assert.Contains(t, out.String(), "=== ★ New title ===")
	assert.Contains(t, out.String(), "ID: "+id)

	require.NoError(t, c.runStar(ctx, id, false))
	assert.Contains(t, out.String(), "✓ Star removed")
}

func TestCli_runDelete(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		answers     []string
		yes         bool
		wantDeleted bool
	}{
		{name: "confirmed", answers: []string{"y"}, wantDeleted: true},
		{name: "declined", answers: []string{"n"}, wantDeleted: false},
		{name: "flag skips prompt", yes: true, wantDeleted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &output{}
			mockIO := newMockIO(out, tt.answers...)
			backend := onlineBackend()
			c := newTestCli(t, mockIO, backend)

			require.NoError(t, c.runNew(ctx, "Groceries", "", false))
			id := createdID(t, out)

			require.NoError(t, c.runDelete(ctx, id, tt.yes))

			_, err := c.notes.Get(ctx, id)
			if tt.wantDeleted {
				assert.Error(t, err)
				assert.Len(t, backend.DeleteNoteCalls(), 1)
				assert.Contains(t, out.String(), "✓ Note deleted")
			} else {
				assert.NoError(t, err)
				assert.Empty(t, backend.DeleteNoteCalls())
				assert.Contains(t, out.String(), "Deletion cancelled.")
			}
			if tt.yes {
				assert.Empty(t, mockIO.ReadInputCalls())
			}
		})
	}
}

func TestCli_runSync(t *testing.T) {
	ctx := context.Background()
	out := &output{}
	backend := onlineBackend()

	remote := crdt.New()
	require.NoError(t, remote.SetTitle("From phone"))
	require.NoError(t, remote.AppendText("call mom"))
	state, err := remote.Encode()
	require.NoError(t, err)

	backend.PullFunc = func(context.Context, api.PullRequest) (*api.PullResponse, error) {
		return &api.PullResponse{
			NewNotes:   []api.NewNote{{ID: "remote-1", Title: "From phone", Content: state, CreatedAt: 1}},
			ServerTime: 1700000000000,
		}, nil
	}

	c := newTestCli(t, newMockIO(out), backend)
	require.NoError(t, c.runNew(ctx, "Local", "text", false))

	out.lines = nil
	require.NoError(t, c.runSync(ctx))

	text := out.String()
	assert.Contains(t, text, "✓ Synchronization completed successfully!")
	assert.Contains(t, text, "Local notes: 1")
	assert.Contains(t, text, "Pushed to server:   1 updates", "full state of the local note")
	assert.Contains(t, text, "New notes:          1")

	note, err := c.notes.Get(ctx, "remote-1")
	require.NoError(t, err)
	assert.Equal(t, "call mom", note.Content)

	ts, err := c.local.GetLastSyncTimestamp(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), ts)
}

func TestCli_runSync_Offline(t *testing.T) {
	ctx := context.Background()
	out := &output{}
	c := newTestCli(t, newMockIO(out), offlineBackend())

	require.NoError(t, c.runNew(ctx, "Draft", "", false))

	err := c.runSync(ctx)
	require.Error(t, err)
	assert.True(t, clientsync.IsTransportError(err))
	assert.NotContains(t, out.String(), "completed successfully")
}

func TestCli_runCompact(t *testing.T) {
	ctx := context.Background()
	out := &output{}
	c := newTestCli(t, newMockIO(out), onlineBackend())

	require.NoError(t, c.runNew(ctx, "One", "a", false))
	require.NoError(t, c.runNew(ctx, "Two", "b", false))

	require.NoError(t, c.runCompact(ctx, nil))
	assert.Contains(t, out.String(), "✓ Compacted 2 note(s)")

	updates, err := c.local.LoadUpdates(ctx, createdID(t, out))
	require.NoError(t, err)
	assert.Empty(t, updates)

	assert.Error(t, c.runCompact(ctx, []string{"missing"}))
}

func TestCli_runWatch_NoDialer(t *testing.T) {
	out := &output{}
	c := newTestCli(t, newMockIO(out), onlineBackend())

	err := c.runWatch(context.Background())
	assert.ErrorIs(t, err, clientsync.ErrNoDialer)
}
