package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpClient "github.com/iudanet/gophnotes/internal/client/api"
	clientmemory "github.com/iudanet/gophnotes/internal/client/storage/memory"
	clientsync "github.com/iudanet/gophnotes/internal/client/sync"
	"github.com/iudanet/gophnotes/internal/crdt"
	"github.com/iudanet/gophnotes/internal/models"
	"github.com/iudanet/gophnotes/internal/realtime"
	"github.com/iudanet/gophnotes/internal/server/storage/memory"
	"github.com/iudanet/gophnotes/pkg/api"
)

const testToken = "relay-test-token"

func newTestRelay(t *testing.T) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(Config{Token: testToken}, logger, memory.New())

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Hub().CloseAll()
		ts.Close()
	})
	return ts
}

// replica клиент со своим движком и набором документов
type replica struct {
	engine  *clientsync.Engine
	api     *httpClient.Client
	docs    map[string]*crdt.Document
	changes []models.RemoteChanges
	mu      sync.Mutex
}

func newReplica(t *testing.T, serverURL string) *replica {
	t.Helper()

	r := &replica{
		api:  httpClient.NewClient(serverURL, httpClient.WithToken(testToken)),
		docs: make(map[string]*crdt.Document),
	}
	dialer := realtime.NewDialer("ws"+strings.TrimPrefix(serverURL, "http")+"/sync/live", testToken)

	r.engine = clientsync.NewEngine(clientsync.Config{PingInterval: time.Second}, clientsync.Deps{
		API: r.api,
		Dial: func(ctx context.Context) (clientsync.Channel, error) {
			conn, err := dialer.Dial(ctx)
			if err != nil {
				return nil, err
			}
			return conn, nil
		},
		Metadata: clientmemory.New(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		OnRemoteNotes: func(changes models.RemoteChanges) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.changes = append(r.changes, changes)
		},
	})
	t.Cleanup(r.engine.Disconnect)
	return r
}

func (r *replica) snapshotChanges() []models.RemoteChanges {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.RemoteChanges(nil), r.changes...)
}

func (r *replica) track(noteID string, doc *crdt.Document) {
	r.docs[noteID] = doc
	r.engine.RegisterDocument(noteID, doc)
}

func TestRelay_HealthAndAuth(t *testing.T) {
	ts := newTestRelay(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health api.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)

	// без токена sync недоступен
	noToken := httpClient.NewClient(ts.URL)
	_, err = noToken.Pull(context.Background(), api.PullRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, httpClient.ErrTransport)

	var statusErr *httpClient.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)

	metricsResp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	assert.Equal(t, http.StatusOK, metricsResp.StatusCode)
}

func TestRelay_UnknownRoute(t *testing.T) {
	ts := newTestRelay(t)

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
	}{
		{name: "get push", method: http.MethodGet, path: "/sync/push", token: testToken, wantStatus: http.StatusMethodNotAllowed},
		{name: "get pull", method: http.MethodGet, path: "/sync/pull", token: testToken, wantStatus: http.StatusMethodNotAllowed},
		{name: "post live", method: http.MethodPost, path: "/sync/live", token: testToken, wantStatus: http.StatusMethodNotAllowed},
		{name: "put notes", method: http.MethodPut, path: "/notes", token: testToken, wantStatus: http.StatusMethodNotAllowed},
		{name: "get note", method: http.MethodGet, path: "/notes/note-1", token: testToken, wantStatus: http.StatusMethodNotAllowed},
		{name: "wrong method without token", method: http.MethodGet, path: "/sync/push", wantStatus: http.StatusMethodNotAllowed},
		{name: "unknown path", method: http.MethodGet, path: "/nope", token: testToken, wantStatus: http.StatusNotFound},
		{name: "right method without token", method: http.MethodPost, path: "/sync/pull", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.URL+tt.path, nil)
			require.NoError(t, err)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestRelay_TwoOfflineReplicasConverge(t *testing.T) {
	ctx := context.Background()
	ts := newTestRelay(t)
	a := newReplica(t, ts.URL)
	b := newReplica(t, ts.URL)

	// A создаёт заметку и публикует её
	docA := crdt.New()
	require.NoError(t, docA.SetTitle("Groceries"))
	state, err := docA.Encode()
	require.NoError(t, err)
	_, err = a.api.CreateNote(ctx, api.CreateNoteRequest{ID: "note-1", Title: "Groceries", Content: state})
	require.NoError(t, err)
	a.track("note-1", docA)

	// B узнаёт о заметке через pull
	result, err := b.engine.PullUpdates(ctx)
	require.NoError(t, err)
	require.Len(t, result.NewNotes, 1)
	docB, err := crdt.Decode(result.NewNotes[0].Content)
	require.NoError(t, err)
	b.track("note-1", docB)
	require.Len(t, b.snapshotChanges(), 1)

	// обе реплики правят офлайн
	require.NoError(t, docA.AppendText("milk"))
	require.NoError(t, docB.AppendText("eggs"))
	require.NoError(t, docB.SetStarred(true))
	assert.Equal(t, 1, a.engine.PendingCount())
	assert.Equal(t, 2, b.engine.PendingCount())

	// обе выходят в сеть: push+pull, затем pull у A подтягивает изменения B
	require.NoError(t, a.engine.Sync(ctx))
	require.NoError(t, b.engine.Sync(ctx))
	_, err = a.engine.PullUpdates(ctx)
	require.NoError(t, err)

	assert.Zero(t, a.engine.PendingCount())
	assert.Zero(t, b.engine.PendingCount())

	assert.Equal(t, docA.Content(), docB.Content())
	assert.Contains(t, docA.Content(), "milk")
	assert.Contains(t, docA.Content(), "eggs")
	assert.True(t, docA.Starred())

	encA, err := docA.Encode()
	require.NoError(t, err)
	encB, err := docB.Encode()
	require.NoError(t, err)
	assert.Equal(t, encA, encB)
}

func TestRelay_PushUnknownNoteIsConflict(t *testing.T) {
	ctx := context.Background()
	ts := newTestRelay(t)
	a := newReplica(t, ts.URL)

	doc := crdt.New()
	a.track("local-only", doc)
	require.NoError(t, doc.AppendText("draft"))

	result, err := a.engine.PushPendingUpdates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"local-only"}, result.Conflicts)
	assert.Equal(t, 1, a.engine.PendingCount(), "conflicting updates stay queued")
}

func TestRelay_LiveFanOut(t *testing.T) {
	ctx := context.Background()
	ts := newTestRelay(t)
	a := newReplica(t, ts.URL)
	b := newReplica(t, ts.URL)

	docA := crdt.New()
	state, err := docA.Encode()
	require.NoError(t, err)
	_, err = a.api.CreateNote(ctx, api.CreateNoteRequest{ID: "note-1", Content: state})
	require.NoError(t, err)
	a.track("note-1", docA)

	docB, err := crdt.Decode(state)
	require.NoError(t, err)
	b.track("note-1", docB)

	// A слушает live канал
	require.NoError(t, a.engine.Connect(ctx))
	require.Eventually(t, func() bool {
		return a.engine.Status().Online()
	}, 5*time.Second, 10*time.Millisecond)

	// подписка уходит сразу после подключения, даём hub её принять
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, docB.AppendText("from B"))
	_, err = b.engine.PushPendingUpdates(ctx)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return docA.Content() == "from B"
	}, 5*time.Second, 10*time.Millisecond)

	// удаление заметки приходит как noteDeleted
	_, err = b.api.DeleteNote(ctx, "note-1")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(a.snapshotChanges()) > 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"note-1"}, a.snapshotChanges()[0].DeletedNotes)
}
