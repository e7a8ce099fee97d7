package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/iudanet/gophnotes/internal/crdt"
	"github.com/iudanet/gophnotes/internal/server/storage"
	"github.com/iudanet/gophnotes/pkg/api"
)

// Publisher рассылает события live клиентам
type Publisher interface {
	PublishUpdate(ctx context.Context, noteID string, update []byte)
	Broadcast(ctx context.Context, msg api.Message)
}

// SyncHandler handles push and pull requests
type SyncHandler struct {
	logger    *slog.Logger
	storage   storage.NoteStorage
	publisher Publisher
	now       func() time.Time
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(logger *slog.Logger, storage storage.NoteStorage, publisher Publisher) *SyncHandler {
	return &SyncHandler{
		logger:    logger,
		storage:   storage,
		publisher: publisher,
		now:       time.Now,
	}
}

// Push обрабатывает POST /sync/push.
// Заметка попадает в processed, только если приняты все её изменения из запроса.
// Неизвестные, удалённые заметки и битые изменения дают conflicts.
func (h *SyncHandler) Push(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode push request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	now := h.now()
	var order []string
	applied := make(map[string]bool)
	conflicted := make(map[string]bool)

	for _, u := range req.Updates {
		if u.NoteID == "" {
			writeError(w, h.logger, http.StatusBadRequest, "update without noteId")
			return
		}
		if !applied[u.NoteID] && !conflicted[u.NoteID] {
			order = append(order, u.NoteID)
		}

		err := h.storage.ApplyUpdate(ctx, u.NoteID, u.Update, now)
		switch {
		case err == nil:
			applied[u.NoteID] = true
			h.publisher.PublishUpdate(ctx, u.NoteID, u.Update)
		case errors.Is(err, storage.ErrNoteNotFound), errors.Is(err, crdt.ErrCorruptUpdate):
			conflicted[u.NoteID] = true
			h.logger.Debug("Update rejected", "note_id", u.NoteID, "error", err)
		default:
			h.logger.Error("Failed to apply update", "note_id", u.NoteID, "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
			return
		}
	}

	resp := api.PushResponse{
		Processed:  []string{},
		Conflicts:  []string{},
		ServerTime: now.UnixMilli(),
	}
	for _, id := range order {
		if conflicted[id] {
			resp.Conflicts = append(resp.Conflicts, id)
		} else {
			resp.Processed = append(resp.Processed, id)
		}
	}

	h.logger.Info("Push completed",
		"updates", len(req.Updates),
		"processed", len(resp.Processed),
		"conflicts", len(resp.Conflicts),
	)
	writeJSON(w, h.logger, http.StatusOK, resp)
}

// Pull обрабатывает POST /sync/pull.
// Для заметок из stateVectors возвращает недостающие изменения,
// остальные заметки, изменённые с since, приходят в newNotes или deletedNotes.
func (h *SyncHandler) Pull(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.PullRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode pull request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	now := h.now()
	since := time.UnixMilli(req.Since)

	notes, err := h.storage.NotesChangedSince(ctx, time.Time{})
	if err != nil {
		h.logger.Error("Failed to list notes", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := api.PullResponse{
		Updates:      map[string][][]byte{},
		NewNotes:     []api.NewNote{},
		DeletedNotes: []string{},
		ServerTime:   now.UnixMilli(),
	}

	for _, note := range notes {
		vector, known := req.StateVectors[note.ID]

		switch {
		case note.Deleted():
			if known || !note.DeletedAt.Before(since) {
				resp.DeletedNotes = append(resp.DeletedNotes, note.ID)
			}

		case known:
			delta, err := h.storage.Delta(ctx, note.ID, vector)
			if errors.Is(err, crdt.ErrCorruptStateVector) {
				writeError(w, h.logger, http.StatusBadRequest, "invalid state vector for note "+note.ID)
				return
			}
			if err != nil {
				h.logger.Error("Failed to compute delta", "note_id", note.ID, "error", err)
				writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
				return
			}
			if len(delta) > 0 {
				resp.Updates[note.ID] = [][]byte{delta}
			}

		case !note.UpdatedAt.Before(since):
			resp.NewNotes = append(resp.NewNotes, newNote(note))
		}
	}
	slices.Sort(resp.DeletedNotes)

	h.logger.Info("Pull completed",
		"notes", len(req.StateVectors),
		"updated", len(resp.Updates),
		"new_notes", len(resp.NewNotes),
		"deleted_notes", len(resp.DeletedNotes),
	)
	writeJSON(w, h.logger, http.StatusOK, resp)
}

func newNote(note *storage.Note) api.NewNote {
	return api.NewNote{
		ID:        note.ID,
		Title:     note.Title,
		Content:   note.Content,
		Starred:   note.Starred,
		CreatedAt: note.CreatedAt.UnixMilli(),
	}
}
