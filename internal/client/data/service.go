// Package data связывает локальное хранилище заметок, движок синхронизации и
// серверные операции над записями заметок (создание, удаление).
package data

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"

	httpClient "github.com/iudanet/gophnotes/internal/client/api"
	"github.com/iudanet/gophnotes/internal/client/store"
	"github.com/iudanet/gophnotes/internal/crdt"
	"github.com/iudanet/gophnotes/internal/models"
	"github.com/iudanet/gophnotes/pkg/api"
)

// ErrEmptyNoteID возвращается для пустого идентификатора заметки
var ErrEmptyNoteID = errors.New("note id is empty")

// Note снимок заметки для вывода
type Note struct {
	ID      string
	Title   string
	Content string
	Starred bool
}

// Service handles client-side note operations
type Service struct {
	store  *store.Store
	syncer Syncer
	remote Remote
	logger *slog.Logger
}

// NewService creates a new note service
func NewService(st *store.Store, syncer Syncer, remote Remote, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  st,
		syncer: syncer,
		remote: remote,
		logger: logger,
	}
}

// OpenAll открывает все локальные заметки и передаёт их движку синхронизации.
// С resync движок получает полное состояние каждой заметки: очередь прошлого
// запуска не сохраняется, сервер применит известные ему изменения идемпотентно.
func (s *Service) OpenAll(ctx context.Context, resync bool) (int, error) {
	ids, err := s.store.List(ctx)
	if err != nil {
		return 0, err
	}

	for _, id := range ids {
		doc, err := s.store.Open(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("failed to open note %s: %w", id, err)
		}
		s.syncer.RegisterDocument(id, doc)

		if resync {
			if err := s.syncer.Resync(id); err != nil {
				return 0, fmt.Errorf("failed to queue note %s: %w", id, err)
			}
		}
	}

	return len(ids), nil
}

// Create создаёт заметку локально и публикует её на сервере.
// Без сети заметка остаётся локальной: её изменения вернутся конфликтом при
// следующей синхронизации, и ResolveConflicts опубликует её.
func (s *Service) Create(ctx context.Context, title, text string, starred bool) (string, error) {
	id := uuid.New().String()

	doc, err := s.store.Create(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to create note: %w", err)
	}
	s.syncer.RegisterDocument(id, doc)

	if title != "" {
		if err := doc.SetTitle(title); err != nil {
			return "", fmt.Errorf("failed to set title: %w", err)
		}
	}
	if text != "" {
		if err := doc.AppendText(text); err != nil {
			return "", fmt.Errorf("failed to write content: %w", err)
		}
	}
	if starred {
		if err := doc.SetStarred(true); err != nil {
			return "", fmt.Errorf("failed to star note: %w", err)
		}
	}

	if err := s.publish(ctx, id, doc); err != nil {
		if errors.Is(err, httpClient.ErrTransport) && !httpClient.HasStatus(err, http.StatusConflict) {
			s.logger.Warn("Note kept local, will be published on next sync", "note_id", id, "error", err)
			return id, nil
		}
		return id, err
	}

	return id, nil
}

// publish отправляет полное состояние заметки как новую запись на сервере.
// После успеха очередь заметки не нужна: сервер получил всё состояние.
func (s *Service) publish(ctx context.Context, id string, doc *crdt.Document) error {
	state, err := doc.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode note: %w", err)
	}

	_, err = s.remote.CreateNote(ctx, api.CreateNoteRequest{
		ID:      id,
		Title:   doc.Title(),
		Content: state,
		Starred: doc.Starred(),
	})
	if err != nil {
		return fmt.Errorf("failed to publish note: %w", err)
	}

	dropped := s.syncer.DropPending(id)
	s.logger.Debug("Note published", "note_id", id, "dropped", dropped)
	return nil
}

// Get возвращает заметку
func (s *Service) Get(ctx context.Context, id string) (*Note, error) {
	doc, err := s.open(ctx, id)
	if err != nil {
		return nil, err
	}
	return snapshot(id, doc), nil
}

// List возвращает все локальные заметки, отсортированные по заголовку
func (s *Service) List(ctx context.Context) ([]*Note, error) {
	ids, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	notes := make([]*Note, 0, len(ids))
	for _, id := range ids {
		doc, err := s.store.Open(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to open note %s: %w", id, err)
		}
		notes = append(notes, snapshot(id, doc))
	}

	slices.SortFunc(notes, func(a, b *Note) int {
		if c := strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return notes, nil
}

// Append дописывает текст в конец заметки
func (s *Service) Append(ctx context.Context, id, text string) error {
	doc, err := s.open(ctx, id)
	if err != nil {
		return err
	}
	return doc.AppendText(text)
}

// SetTitle меняет заголовок
func (s *Service) SetTitle(ctx context.Context, id, title string) error {
	doc, err := s.open(ctx, id)
	if err != nil {
		return err
	}
	return doc.SetTitle(title)
}

// SetStarred меняет флаг избранного
func (s *Service) SetStarred(ctx context.Context, id string, starred bool) error {
	doc, err := s.open(ctx, id)
	if err != nil {
		return err
	}
	return doc.SetStarred(starred)
}

// Delete удаляет заметку на сервере и локально.
// Заметка, неизвестная серверу, удаляется только локально.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyNoteID
	}

	if _, err := s.remote.DeleteNote(ctx, id); err != nil && !httpClient.HasStatus(err, http.StatusNotFound) {
		return fmt.Errorf("failed to delete note on server: %w", err)
	}

	return s.forget(ctx, id)
}

// Compact сворачивает журнал заметки в снапшот
func (s *Service) Compact(ctx context.Context, id string) error {
	if _, err := s.open(ctx, id); err != nil {
		return err
	}
	return s.store.Compact(ctx, id)
}

// ApplyRemoteChanges сохраняет заметки, созданные на других устройствах,
// и удаляет заметки, удалённые на сервере.
func (s *Service) ApplyRemoteChanges(ctx context.Context, changes models.RemoteChanges) error {
	var errs []error

	for _, note := range changes.NewNotes {
		doc, err := s.store.Import(ctx, note.ID, note.Content)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to import note %s: %w", note.ID, err))
			continue
		}
		s.syncer.RegisterDocument(note.ID, doc)
		s.logger.Info("Remote note imported", "note_id", note.ID, "title", note.Title)
	}

	for _, id := range changes.DeletedNotes {
		if err := s.forget(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		s.logger.Info("Remote note deleted", "note_id", id)
	}

	return errors.Join(errs...)
}

// ResolveConflicts разбирает заметки, изменения которых сервер не принял.
// Неизвестная серверу заметка публикуется целиком. Если сервер знает заметку
// (в том числе удалённую), её очередь сбрасывается: удаление придёт с pull.
func (s *Service) ResolveConflicts(ctx context.Context, ids []string) error {
	var errs []error

	for _, id := range ids {
		doc, err := s.store.Open(ctx, id)
		if errors.Is(err, store.ErrNoteNotFound) {
			s.syncer.DropPending(id)
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}

		err = s.publish(ctx, id, doc)
		switch {
		case err == nil:
			s.logger.Info("Local note published", "note_id", id)
		case httpClient.HasStatus(err, http.StatusConflict):
			dropped := s.syncer.DropPending(id)
			s.logger.Warn("Server rejected note updates, dropping them", "note_id", id, "dropped", dropped)
		default:
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (s *Service) open(ctx context.Context, id string) (*crdt.Document, error) {
	if id == "" {
		return nil, ErrEmptyNoteID
	}

	doc, err := s.store.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	s.syncer.RegisterDocument(id, doc)
	return doc, nil
}

func (s *Service) forget(ctx context.Context, id string) error {
	s.syncer.UnregisterDocument(id)
	s.syncer.DropPending(id)

	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete note %s: %w", id, err)
	}
	return nil
}

func snapshot(id string, doc *crdt.Document) *Note {
	return &Note{
		ID:      id,
		Title:   doc.Title(),
		Content: doc.Content(),
		Starred: doc.Starred(),
	}
}
