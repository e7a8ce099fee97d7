// Package sync согласует локальные документы заметок с сервером:
// очередь неподтверждённых изменений, push/pull по HTTP и live канал
// с переподключением.
package sync

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/iudanet/gophnotes/internal/client/storage"
	"github.com/iudanet/gophnotes/internal/crdt"
	"github.com/iudanet/gophnotes/internal/metrics"
	"github.com/iudanet/gophnotes/internal/models"
)

// Deps внешние зависимости движка. Обязателен только API.
type Deps struct {
	API APIClient

	// Dial открывает live канал, nil отключает Connect
	Dial DialFunc

	// Metadata хранит время последней синхронизации, nil означает since=0
	Metadata storage.MetadataStorage

	Logger *slog.Logger

	OnStatus      func(status models.SyncStatus)
	OnError       func(err error)
	OnConflicts   func(noteIDs []string)
	OnRemoteNotes func(changes models.RemoteChanges)

	// After таймер задержки переподключения, по умолчанию time.After
	After func(d time.Duration) <-chan time.Time

	// Now источник времени для записей очереди, по умолчанию time.Now
	Now func() time.Time
}

// pendingEntry запись очереди с порядковым номером для подтверждения
type pendingEntry struct {
	record models.UpdateRecord
	seq    uint64
}

type registration struct {
	doc    *crdt.Document
	cancel func()
}

// Engine движок синхронизации. Один на процесс, создаётся через NewEngine.
type Engine struct {
	deps    Deps
	logger  *slog.Logger
	backoff *backoff.ExponentialBackOff
	docs    map[string]*registration
	pending map[string][]pendingEntry
	channel Channel // открытый live канал или nil
	cancel  context.CancelFunc
	done    chan struct{}
	cfg     Config
	nextSeq uint64
	attempt int
	status  models.SyncStatus
	mu      sync.Mutex // защищает всё выше
	syncMu  sync.Mutex // сериализует push и pull
}

// NewEngine создаёт движок синхронизации
func NewEngine(cfg Config, deps Deps) *Engine {
	cfg = cfg.withDefaults()

	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.After == nil {
		deps.After = time.After
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialBackoff
	b.MaxInterval = cfg.MaxBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.Reset()

	return &Engine{
		deps:    deps,
		logger:  deps.Logger,
		backoff: b,
		docs:    make(map[string]*registration),
		pending: make(map[string][]pendingEntry),
		cfg:     cfg,
		status:  models.StatusDisconnected,
	}
}

// RegisterDocument начинает синхронизацию документа: локальные изменения
// попадают в очередь, при открытом канале заметка подписывается на live обновления.
func (e *Engine) RegisterDocument(noteID string, doc *crdt.Document) {
	e.mu.Lock()
	if old, ok := e.docs[noteID]; ok {
		old.cancel()
	}

	cancel := doc.Observe(func(update []byte, origin crdt.Origin) error {
		if origin != crdt.OriginLocal {
			return nil
		}
		e.enqueue(noteID, update)
		return nil
	})
	e.docs[noteID] = &registration{doc: doc, cancel: cancel}
	ch := e.channel
	e.mu.Unlock()

	e.logger.Debug("Document registered", "note_id", noteID)

	if ch != nil {
		// обрыв при этом обнаружит цикл канала
		if err := e.subscribe(context.Background(), ch, []string{noteID}); err != nil {
			e.reportError(err)
		}
	}
}

// UnregisterDocument прекращает наблюдение за документом.
// Уже поставленные в очередь изменения остаются и будут отправлены.
func (e *Engine) UnregisterDocument(noteID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if reg, ok := e.docs[noteID]; ok {
		reg.cancel()
		delete(e.docs, noteID)
	}
}

// Resync ставит в очередь полное состояние документа.
// Нужен, когда изменения были сделаны без движка (прошлым запуском процесса):
// сервер применит уже известные ему изменения идемпотентно.
func (e *Engine) Resync(noteID string) error {
	e.mu.Lock()
	reg, ok := e.docs[noteID]
	e.mu.Unlock()
	if !ok {
		return nil
	}

	state, err := reg.doc.Encode()
	if err != nil {
		return err
	}
	if len(state) > 0 {
		e.enqueue(noteID, state)
	}
	return nil
}

func (e *Engine) enqueue(noteID string, update []byte) {
	e.mu.Lock()
	e.nextSeq++
	e.pending[noteID] = append(e.pending[noteID], pendingEntry{
		seq:    e.nextSeq,
		record: models.NewUpdateRecord(noteID, update, e.deps.Now()),
	})
	count := e.pendingCountLocked()
	e.mu.Unlock()

	metrics.PendingUpdates.Set(float64(count))
}

// PendingCount возвращает число неподтверждённых изменений
func (e *Engine) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.pendingCountLocked()
}

func (e *Engine) pendingCountLocked() int {
	n := 0
	for _, entries := range e.pending {
		n += len(entries)
	}
	return n
}

// DropPending выбрасывает очередь заметки, например после конфликта.
// Возвращает число удалённых записей.
func (e *Engine) DropPending(noteID string) int {
	e.mu.Lock()
	n := len(e.pending[noteID])
	delete(e.pending, noteID)
	count := e.pendingCountLocked()
	e.mu.Unlock()

	metrics.PendingUpdates.Set(float64(count))
	if n > 0 {
		e.logger.Info("Pending updates dropped", "note_id", noteID, "count", n)
	}
	return n
}

// Status возвращает текущее состояние соединения
func (e *Engine) Status() models.SyncStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.status
}

func (e *Engine) setStatus(status models.SyncStatus) {
	e.mu.Lock()
	if e.status == status {
		e.mu.Unlock()
		return
	}
	e.status = status
	e.mu.Unlock()

	e.logger.Debug("Sync status changed", "status", status.String())
	if e.deps.OnStatus != nil {
		e.deps.OnStatus(status)
	}
}

// settle возвращает статус после неудачного обмена
func (e *Engine) settle() {
	e.mu.Lock()
	open := e.channel != nil
	e.mu.Unlock()

	if open {
		e.setStatus(models.StatusConnected)
	} else {
		e.setStatus(models.StatusDisconnected)
	}
}

// synced отмечает успешный обмен. При открытом канале статус
// возвращается в Connected.
func (e *Engine) synced() {
	e.setStatus(models.StatusSynced)

	e.mu.Lock()
	open := e.channel != nil
	e.mu.Unlock()

	if open {
		e.setStatus(models.StatusConnected)
	}
}

func (e *Engine) reportError(err error) {
	e.logger.Warn("Sync error", "error", err)
	if e.deps.OnError != nil {
		e.deps.OnError(err)
	}
}

func (e *Engine) document(noteID string) *crdt.Document {
	e.mu.Lock()
	defer e.mu.Unlock()

	if reg, ok := e.docs[noteID]; ok {
		return reg.doc
	}
	return nil
}

func (e *Engine) registeredIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make([]string, 0, len(e.docs))
	for id := range e.docs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
