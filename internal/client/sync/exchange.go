package sync

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/iudanet/gophnotes/internal/crdt"
	"github.com/iudanet/gophnotes/internal/metrics"
	"github.com/iudanet/gophnotes/internal/models"
	"github.com/iudanet/gophnotes/pkg/api"
)

// PushResult итог отправки очереди
type PushResult struct {
	ServerTime time.Time
	Processed  []string
	Conflicts  []string
	Pushed     int // число отправленных записей
}

// PullResult итог получения изменений
type PullResult struct {
	ServerTime   time.Time
	NewNotes     []models.RemoteNote
	DeletedNotes []string
	Applied      int // число применённых delta
}

// PushPendingUpdates отправляет все неподтверждённые изменения одним запросом.
// Из очереди удаляются только отправленные записи заметок из processed.
// При ошибке очередь не меняется.
func (e *Engine) PushPendingUpdates(ctx context.Context) (*PushResult, error) {
	e.syncMu.Lock()
	defer e.syncMu.Unlock()

	// Снимаем копию очереди и запоминаем последний отправленный номер по заметке
	e.mu.Lock()
	noteIDs := make([]string, 0, len(e.pending))
	for id, entries := range e.pending {
		if len(entries) > 0 {
			noteIDs = append(noteIDs, id)
		}
	}
	slices.Sort(noteIDs)

	sent := make(map[string]uint64, len(noteIDs))
	var updates []api.PushUpdate
	for _, id := range noteIDs {
		for _, entry := range e.pending[id] {
			updates = append(updates, api.PushUpdate{
				NoteID:    entry.record.NoteID,
				Update:    entry.record.Payload,
				Timestamp: entry.record.TimestampMillis(),
			})
			sent[id] = entry.seq
		}
	}
	e.mu.Unlock()

	if len(updates) == 0 {
		return &PushResult{}, nil
	}

	// HTTP обмен не требует live канала: из Disconnected статус тоже проходит
	// через Syncing и возвращается в Synced либо Disconnected
	e.setStatus(models.StatusSyncing)
	e.logger.Debug("Pushing pending updates", "count", len(updates), "notes", len(noteIDs))

	start := time.Now()
	resp, err := e.deps.API.Push(ctx, api.PushRequest{Updates: updates})
	metrics.SyncDuration.WithLabelValues("push").Observe(time.Since(start).Seconds())
	metrics.SyncRequests.WithLabelValues("push", metrics.Result(err)).Inc()
	if err != nil {
		err = fmt.Errorf("failed to push pending updates: %w", err)
		e.reportError(err)
		e.settle()
		return nil, err
	}

	// Подтверждаем отправленные записи
	e.mu.Lock()
	for _, id := range resp.Processed {
		maxSeq, ok := sent[id]
		if !ok {
			continue
		}
		remaining := slices.DeleteFunc(e.pending[id], func(entry pendingEntry) bool {
			return entry.seq <= maxSeq
		})
		if len(remaining) == 0 {
			delete(e.pending, id)
		} else {
			e.pending[id] = remaining
		}
	}
	count := e.pendingCountLocked()
	e.mu.Unlock()

	metrics.PendingUpdates.Set(float64(count))

	result := &PushResult{
		Pushed:     len(updates),
		Processed:  resp.Processed,
		Conflicts:  resp.Conflicts,
		ServerTime: time.UnixMilli(resp.ServerTime),
	}

	if len(resp.Conflicts) > 0 {
		metrics.PushConflicts.Add(float64(len(resp.Conflicts)))
		e.logger.Warn("Server reported conflicts", "notes", resp.Conflicts)
		if e.deps.OnConflicts != nil {
			e.deps.OnConflicts(resp.Conflicts)
		}
	}

	e.logger.Info("Pending updates pushed",
		"count", len(updates),
		"processed", len(resp.Processed),
		"conflicts", len(resp.Conflicts),
		"pending", count,
	)
	e.synced()

	return result, nil
}

// PullUpdates запрашивает у сервера изменения зарегистрированных заметок
// и список созданных/удалённых заметок с момента последней синхронизации.
func (e *Engine) PullUpdates(ctx context.Context) (*PullResult, error) {
	e.syncMu.Lock()
	defer e.syncMu.Unlock()

	// как и push, разрешён без live канала (разовый sync из CLI)
	e.setStatus(models.StatusSyncing)

	ids := e.registeredIDs()
	vectors := make(map[string][]byte, len(ids))
	for _, id := range ids {
		if doc := e.document(id); doc != nil {
			vectors[id] = doc.StateVector()
		}
	}

	var since int64
	if e.deps.Metadata != nil {
		ts, err := e.deps.Metadata.GetLastSyncTimestamp(ctx)
		if err != nil {
			e.logger.Warn("Failed to read last sync timestamp, pulling from scratch", "error", err)
		} else {
			since = ts
		}
	}

	start := time.Now()
	resp, err := e.deps.API.Pull(ctx, api.PullRequest{StateVectors: vectors, Since: since})
	metrics.SyncDuration.WithLabelValues("pull").Observe(time.Since(start).Seconds())
	metrics.SyncRequests.WithLabelValues("pull", metrics.Result(err)).Inc()
	if err != nil {
		err = fmt.Errorf("failed to pull updates: %w", err)
		e.reportError(err)
		e.settle()
		return nil, err
	}

	result := &PullResult{
		DeletedNotes: resp.DeletedNotes,
		ServerTime:   time.UnixMilli(resp.ServerTime),
	}

	// Применяем delta в стабильном порядке заметок
	updatedIDs := make([]string, 0, len(resp.Updates))
	for id := range resp.Updates {
		updatedIDs = append(updatedIDs, id)
	}
	slices.Sort(updatedIDs)

	for _, id := range updatedIDs {
		doc := e.document(id)
		if doc == nil {
			e.logger.Debug("Skipping updates for unregistered note", "note_id", id)
			continue
		}
		for _, update := range resp.Updates[id] {
			applied, err := e.applyRemote(id, doc, update, "pull")
			if err != nil {
				return nil, err
			}
			if applied {
				result.Applied++
			}
		}
	}

	for _, n := range resp.NewNotes {
		result.NewNotes = append(result.NewNotes, remoteNote(n))
	}

	changes := models.RemoteChanges{NewNotes: result.NewNotes, DeletedNotes: result.DeletedNotes}
	if !changes.Empty() && e.deps.OnRemoteNotes != nil {
		e.deps.OnRemoteNotes(changes)
	}

	if e.deps.Metadata != nil && resp.ServerTime > 0 {
		if err := e.deps.Metadata.SaveLastSyncTimestamp(ctx, resp.ServerTime); err != nil {
			e.logger.Warn("Failed to save last sync timestamp", "error", err)
		}
	}

	e.logger.Info("Updates pulled",
		"applied", result.Applied,
		"new_notes", len(result.NewNotes),
		"deleted_notes", len(result.DeletedNotes),
	)
	e.synced()

	return result, nil
}

// Sync отправляет очередь и затем забирает изменения с сервера
func (e *Engine) Sync(ctx context.Context) error {
	if _, err := e.PushPendingUpdates(ctx); err != nil {
		return err
	}
	if _, err := e.PullUpdates(ctx); err != nil {
		return err
	}
	return nil
}

// applyRemote применяет delta от сервера.
// Delta с ещё не полученными зависимостями документ держит до их прихода.
// Битая delta пропускается и передаётся в OnError: документ от неё не меняется,
// а повтор pull её не исправит.
// Ошибка наблюдателя (запись журнала) возвращается вызывающему.
func (e *Engine) applyRemote(noteID string, doc *crdt.Document, update []byte, transport string) (bool, error) {
	err := doc.ApplyUpdate(update, crdt.OriginRemote)
	switch {
	case err == nil:
		metrics.RemoteUpdates.WithLabelValues(transport).Inc()
		return true, nil
	case errors.Is(err, crdt.ErrCorruptUpdate):
		e.reportError(fmt.Errorf("skipped remote update for note %s via %s: %w", noteID, transport, err))
		return false, nil
	default:
		err = fmt.Errorf("failed to apply remote update for note %s: %w", noteID, err)
		e.reportError(err)
		e.settle()
		return false, err
	}
}

func remoteNote(n api.NewNote) models.RemoteNote {
	return models.RemoteNote{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		Starred:   n.Starred,
		CreatedAt: time.UnixMilli(n.CreatedAt),
	}
}
