// Package store хранит документы заметок на устройстве: снапшот плюс
// журнал изменений, записанных после него. Каждое изменение попадает в журнал
// синхронно, до того как его увидит синхронизация. Журнал сворачивается в снапшот
// после паузы в редактировании или при достижении порога.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/gophnotes/internal/client/storage"
	"github.com/iudanet/gophnotes/internal/crdt"
	"github.com/iudanet/gophnotes/internal/metrics"
)

// Store управляет открытыми документами и их долговременным хранением.
// На каждую заметку в процессе существует ровно один *crdt.Document.
type Store struct {
	storage   storage.DocumentStorage
	logger    *slog.Logger
	entries   map[string]*entry
	debounce  time.Duration
	threshold int
	closed    bool
	mu        sync.Mutex // защищает entries и closed
}

// entry открытая заметка
type entry struct {
	doc    *crdt.Document
	cancel func() // отписка наблюдателя store
	timer  *time.Timer
	gen    uint64 // поколение таймера, устаревший таймер не компактирует
	logged int    // записей в журнале с последнего снапшота
	mu     sync.Mutex
}

// New creates a new Store over the given storage
func New(docs storage.DocumentStorage, opts ...Option) *Store {
	s := &Store{
		storage:   docs,
		logger:    slog.Default(),
		entries:   make(map[string]*entry),
		debounce:  DefaultDebounce,
		threshold: DefaultThreshold,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Open возвращает документ заметки: из кеша либо из снапшота с повтором журнала.
// Если журнал длиннее порога, заметка сразу компактируется.
func (s *Store) Open(ctx context.Context, noteID string) (*crdt.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	if e, ok := s.entries[noteID]; ok {
		return e.doc, nil
	}

	e, err := s.load(ctx, noteID)
	if err != nil {
		return nil, err
	}
	s.attach(noteID, e)

	if e.logged > s.threshold {
		e.mu.Lock()
		if err := s.compactLocked(ctx, noteID, e); err != nil {
			s.logger.Warn("Compaction after replay failed", "note_id", noteID, "error", err)
			s.armLocked(noteID, e)
		}
		e.mu.Unlock()
	}

	return e.doc, nil
}

// load читает снапшот и повторяет журнал. Вызывается под s.mu.
func (s *Store) load(ctx context.Context, noteID string) (*entry, error) {
	state, err := s.storage.Load(ctx, noteID)
	found := err == nil
	if err != nil && !errors.Is(err, storage.ErrSnapshotNotFound) {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	updates, err := s.storage.LoadUpdates(ctx, noteID)
	if err != nil {
		return nil, fmt.Errorf("failed to load update log: %w", err)
	}
	if !found && len(updates) == 0 {
		return nil, ErrNoteNotFound
	}

	doc, err := crdt.Decode(state)
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	// изменения с недостающими зависимостями остаются в документе и попадут
	// в снапшот; нечитаемую запись пропускать нельзя, компакция бы её стёрла
	for i, update := range updates {
		if err := doc.ApplyUpdate(update, crdt.OriginPersistence); err != nil {
			s.logger.Error("Unreadable log entry",
				"note_id", noteID,
				"index", i,
				"error", err,
			)
			return nil, fmt.Errorf("%w: note %s entry %d: %w", ErrCorruptLog, noteID, i, err)
		}
	}

	s.logger.Debug("Note opened", "note_id", noteID, "replayed", len(updates))

	return &entry{doc: doc, logged: len(updates)}, nil
}

// attach подписывает store на изменения документа и кладёт его в кеш.
// Вызывается под s.mu.
func (s *Store) attach(noteID string, e *entry) {
	e.cancel = e.doc.Observe(func(update []byte, origin crdt.Origin) error {
		if origin == crdt.OriginPersistence {
			return nil
		}
		return s.RecordMutation(context.Background(), noteID, update)
	})
	s.entries[noteID] = e
}

// Create создаёт новую пустую заметку и сохраняет начальный снапшот
func (s *Store) Create(ctx context.Context, noteID string) (*crdt.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	if _, ok := s.entries[noteID]; ok {
		return nil, ErrNoteExists
	}

	exists, err := s.exists(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrNoteExists
	}

	doc := crdt.New()
	if err := s.saveSnapshot(ctx, noteID, doc); err != nil {
		return nil, err
	}

	s.attach(noteID, &entry{doc: doc})
	s.logger.Debug("Note created", "note_id", noteID)

	return doc, nil
}

// Import сохраняет полное состояние заметки, полученное с сервера.
// Если заметка уже есть локально, состояние сливается с ней как удалённое изменение.
func (s *Store) Import(ctx context.Context, noteID string, content []byte) (*crdt.Document, error) {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return nil, ErrStoreClosed
	}

	e, cached := s.entries[noteID]
	if !cached {
		exists, err := s.exists(ctx, noteID)
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}

		if !exists {
			doc, err := crdt.Decode(content)
			if err != nil {
				s.mu.Unlock()
				return nil, err
			}
			if err := s.saveSnapshot(ctx, noteID, doc); err != nil {
				s.mu.Unlock()
				return nil, err
			}
			s.attach(noteID, &entry{doc: doc})
			s.mu.Unlock()

			s.logger.Debug("Note imported", "note_id", noteID)
			return doc, nil
		}

		e, err = s.load(ctx, noteID)
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		s.attach(noteID, e)
	}
	s.mu.Unlock()

	// наблюдатель store запишет изменение в журнал
	if err := e.doc.ApplyUpdate(content, crdt.OriginRemote); err != nil {
		return nil, err
	}

	return e.doc, nil
}

func (s *Store) exists(ctx context.Context, noteID string) (bool, error) {
	_, err := s.storage.Load(ctx, noteID)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, storage.ErrSnapshotNotFound) {
		return false, fmt.Errorf("failed to check snapshot: %w", err)
	}

	updates, err := s.storage.LoadUpdates(ctx, noteID)
	if err != nil {
		return false, fmt.Errorf("failed to check update log: %w", err)
	}
	return len(updates) > 0, nil
}

func (s *Store) saveSnapshot(ctx context.Context, noteID string, doc *crdt.Document) error {
	state, err := doc.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode note: %w", err)
	}
	if err := s.storage.Save(ctx, noteID, state); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// RecordMutation синхронно дописывает изменение в журнал заметки и
// перезапускает таймер компакции. Ошибка записи оборачивается в ErrStorageFatal.
func (s *Store) RecordMutation(ctx context.Context, noteID string, update []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}
	e := s.entries[noteID]
	s.mu.Unlock()

	// заметка не открыта: только журнал, компакция при следующем Open
	if e == nil {
		if err := s.storage.SaveUpdate(ctx, noteID, update); err != nil {
			metrics.LogAppends.WithLabelValues(metrics.ResultError).Inc()
			return fmt.Errorf("%w: %w", ErrStorageFatal, err)
		}
		metrics.LogAppends.WithLabelValues(metrics.ResultOK).Inc()
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := s.storage.SaveUpdate(ctx, noteID, update); err != nil {
		metrics.LogAppends.WithLabelValues(metrics.ResultError).Inc()
		s.logger.Error("Failed to append update", "note_id", noteID, "error", err)
		return fmt.Errorf("%w: %w", ErrStorageFatal, err)
	}
	metrics.LogAppends.WithLabelValues(metrics.ResultOK).Inc()
	e.logged++

	if e.logged >= s.threshold {
		// изменение уже в журнале, ошибка компакции не отменяет мутацию
		if err := s.compactLocked(ctx, noteID, e); err != nil {
			s.logger.Warn("Threshold compaction failed", "note_id", noteID, "error", err)
			s.armLocked(noteID, e)
		}
		return nil
	}

	s.armLocked(noteID, e)
	return nil
}

// armLocked перезапускает таймер компакции. Вызывается под e.mu.
func (s *Store) armLocked(noteID string, e *entry) {
	if e.timer != nil {
		e.timer.Stop()
	}
	e.gen++
	gen := e.gen

	e.timer = time.AfterFunc(s.debounce, func() {
		s.fire(noteID, e, gen)
	})
}

// fire фоновая компакция по таймеру
func (s *Store) fire(noteID string, e *entry, gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.gen != gen {
		return
	}
	e.timer = nil

	if err := s.compactLocked(context.Background(), noteID, e); err != nil {
		s.logger.Warn("Background compaction failed, will retry", "note_id", noteID, "error", err)
		s.armLocked(noteID, e)
	}
}

// Compact сворачивает журнал заметки в снапшот
func (s *Store) Compact(ctx context.Context, noteID string) error {
	if _, err := s.Open(ctx, noteID); err != nil {
		return err
	}

	s.mu.Lock()
	e := s.entries[noteID]
	s.mu.Unlock()
	if e == nil {
		return ErrNoteNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return s.compactLocked(ctx, noteID, e)
}

// compactLocked пишет снапшот и только после успешной записи очищает журнал.
// Вызывается под e.mu.
func (s *Store) compactLocked(ctx context.Context, noteID string, e *entry) error {
	state, err := e.doc.Encode()
	if err != nil {
		metrics.Compactions.WithLabelValues(metrics.ResultError).Inc()
		return fmt.Errorf("failed to encode note: %w", err)
	}

	if err := s.storage.Save(ctx, noteID, state); err != nil {
		metrics.Compactions.WithLabelValues(metrics.ResultError).Inc()
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	if err := s.storage.ClearUpdates(ctx, noteID); err != nil {
		// снапшот уже содержит всё из журнала, повтор журнала безопасен
		metrics.Compactions.WithLabelValues(metrics.ResultError).Inc()
		return fmt.Errorf("failed to clear update log: %w", err)
	}

	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.gen++
	compacted := e.logged
	e.logged = 0

	metrics.Compactions.WithLabelValues(metrics.ResultOK).Inc()
	s.logger.Debug("Note compacted", "note_id", noteID, "updates", compacted, "bytes", len(state))

	return nil
}

// Flush компактирует все заметки с несвёрнутым журналом
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	pending := make(map[string]*entry, len(s.entries))
	for id, e := range s.entries {
		pending[id] = e
	}
	s.mu.Unlock()

	var errs []error
	for id, e := range pending {
		e.mu.Lock()
		if e.timer != nil || e.logged > 0 {
			if err := s.compactLocked(ctx, id, e); err != nil {
				errs = append(errs, fmt.Errorf("note %s: %w", id, err))
			}
		}
		e.mu.Unlock()
	}

	return errors.Join(errs...)
}

// Delete удаляет заметку из кеша и хранилища
func (s *Store) Delete(ctx context.Context, noteID string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}
	e := s.entries[noteID]
	delete(s.entries, noteID)
	s.mu.Unlock()

	if e != nil {
		e.cancel()

		e.mu.Lock()
		if e.timer != nil {
			e.timer.Stop()
			e.timer = nil
		}
		e.gen++
		e.mu.Unlock()
	}

	if err := s.storage.Delete(ctx, noteID); err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}

	s.logger.Debug("Note deleted", "note_id", noteID)
	return nil
}

// List возвращает ID всех заметок в хранилище, открытых и нет
func (s *Store) List(ctx context.Context) ([]string, error) {
	ids, err := s.storage.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return ids, nil
}

// Close сворачивает журналы и перестаёт принимать изменения
func (s *Store) Close(ctx context.Context) error {
	err := s.Flush(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for _, e := range s.entries {
		e.cancel()

		e.mu.Lock()
		if e.timer != nil {
			e.timer.Stop()
			e.timer = nil
		}
		e.gen++
		e.mu.Unlock()
	}
	s.entries = make(map[string]*entry)

	return err
}
