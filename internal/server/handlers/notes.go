package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iudanet/gophnotes/internal/crdt"
	"github.com/iudanet/gophnotes/internal/server/storage"
	"github.com/iudanet/gophnotes/pkg/api"
)

// NotesHandler handles note creation and deletion
type NotesHandler struct {
	logger    *slog.Logger
	storage   storage.NoteStorage
	publisher Publisher
	now       func() time.Time
}

// NewNotesHandler creates a new notes handler
func NewNotesHandler(logger *slog.Logger, storage storage.NoteStorage, publisher Publisher) *NotesHandler {
	return &NotesHandler{
		logger:    logger,
		storage:   storage,
		publisher: publisher,
		now:       time.Now,
	}
}

// Create обрабатывает POST /notes.
// Content - полное состояние документа, созданного клиентом. Без ID сервер выдаёт UUID.
func (h *NotesHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode create note request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	doc, err := crdt.Decode(req.Content)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid note content")
		return
	}

	// Метаданные из запроса дополняют документ, если он их ещё не содержит
	if req.Title != "" && doc.Title() != req.Title {
		if err := doc.SetTitle(req.Title); err != nil {
			h.logger.Error("Failed to set title", "note_id", req.ID, "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
			return
		}
	}
	if req.Starred && !doc.Starred() {
		if err := doc.SetStarred(true); err != nil {
			h.logger.Error("Failed to set starred", "note_id", req.ID, "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
			return
		}
	}

	state, err := doc.Encode()
	if err != nil {
		h.logger.Error("Failed to encode note", "note_id", req.ID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	note, err := h.storage.CreateNote(ctx, req.ID, state, h.now())
	if errors.Is(err, storage.ErrNoteExists) {
		writeError(w, h.logger, http.StatusConflict, "note already exists")
		return
	}
	if err != nil {
		h.logger.Error("Failed to create note", "note_id", req.ID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	created := newNote(note)
	h.publisher.Broadcast(ctx, api.Message{Type: api.MessageNoteCreated, Note: &created})

	h.logger.Info("Note created", "note_id", note.ID)
	writeJSON(w, h.logger, http.StatusCreated, api.CreateNoteResponse{
		ID:        note.ID,
		CreatedAt: created.CreatedAt,
	})
}

// Delete обрабатывает DELETE /notes/{id}
func (h *NotesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	noteID := mux.Vars(r)["id"]

	now := h.now()
	err := h.storage.DeleteNote(ctx, noteID, now)
	if errors.Is(err, storage.ErrNoteNotFound) {
		writeError(w, h.logger, http.StatusNotFound, "note not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to delete note", "note_id", noteID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	h.publisher.Broadcast(ctx, api.Message{Type: api.MessageNoteDeleted, NoteID: noteID})

	h.logger.Info("Note deleted", "note_id", noteID)
	writeJSON(w, h.logger, http.StatusOK, api.DeleteNoteResponse{DeletedAt: now.UnixMilli()})
}
