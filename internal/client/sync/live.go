package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iudanet/gophnotes/internal/metrics"
	"github.com/iudanet/gophnotes/internal/models"
	"github.com/iudanet/gophnotes/pkg/api"
)

// Connect запускает цикл live канала: подключение, подписка, приём изменений
// и переподключение с экспоненциальной задержкой.
// Возвращается сразу, цикл работает до Disconnect, отмены ctx
// или исчерпания попыток переподключения.
func (e *Engine) Connect(ctx context.Context) error {
	if e.deps.Dial == nil {
		return ErrNoDialer
	}

	e.mu.Lock()
	if e.done != nil {
		select {
		case <-e.done:
			// прошлый цикл завершился, запускаем новый
		default:
			e.mu.Unlock()
			return nil
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	e.cancel = cancel
	e.done = done
	e.attempt = 0
	e.backoff.Reset()
	e.mu.Unlock()

	go e.run(loopCtx, done)
	return nil
}

// Disconnect останавливает цикл, закрывает канал и ждёт завершения
func (e *Engine) Disconnect() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel = nil
	e.done = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	e.setStatus(models.StatusDisconnected)
}

func (e *Engine) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		err := e.session(ctx)
		if ctx.Err() != nil {
			e.setStatus(models.StatusDisconnected)
			return
		}

		e.setStatus(models.StatusDisconnected)
		e.reportError(err)

		e.mu.Lock()
		e.attempt++
		attempt := e.attempt
		var delay time.Duration
		if attempt <= e.cfg.MaxReconnectAttempts {
			delay = e.backoff.NextBackOff()
		}
		e.mu.Unlock()

		if attempt > e.cfg.MaxReconnectAttempts {
			e.logger.Error("Reconnect attempts exhausted, staying offline",
				"attempts", e.cfg.MaxReconnectAttempts,
			)
			return
		}

		metrics.Reconnects.Inc()
		e.logger.Info("Reconnecting live channel", "attempt", attempt, "delay", delay)

		select {
		case <-ctx.Done():
			e.setStatus(models.StatusDisconnected)
			return
		case <-e.deps.After(delay):
		}
	}
}

// session обслуживает одно подключение. Возвращает причину обрыва.
func (e *Engine) session(ctx context.Context) error {
	e.setStatus(models.StatusConnecting)

	ch, err := e.deps.Dial(ctx)
	if err != nil {
		return fmt.Errorf("%w: dial: %w", ErrTransport, err)
	}

	sessCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		e.mu.Lock()
		e.channel = nil
		e.mu.Unlock()
		_ = ch.Close()
		wg.Wait()
	}()

	e.mu.Lock()
	e.channel = ch
	e.attempt = 0
	e.backoff.Reset()
	e.mu.Unlock()

	e.setStatus(models.StatusConnected)
	e.logger.Info("Live channel connected")

	if ids := e.registeredIDs(); len(ids) > 0 {
		if err := e.subscribe(sessCtx, ch, ids); err != nil {
			return err
		}
	}

	// Ошибка push уже передана в OnError, канал при этом живой
	_, _ = e.PushPendingUpdates(sessCtx)

	// Читатель пересылает кадры в цикл
	frames := make(chan api.Message)
	readErr := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			msg, err := ch.Receive(sessCtx)
			if err != nil {
				readErr <- err
				return
			}
			select {
			case frames <- msg:
			case <-sessCtx.Done():
				return
			}
		}
	}()

	var pingC, syncC <-chan time.Time
	if e.cfg.PingInterval > 0 {
		ticker := time.NewTicker(e.cfg.PingInterval)
		defer ticker.Stop()
		pingC = ticker.C
	}
	if e.cfg.SyncInterval > 0 {
		ticker := time.NewTicker(e.cfg.SyncInterval)
		defer ticker.Stop()
		syncC = ticker.C
	}

	lastSeen := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-readErr:
			return fmt.Errorf("%w: receive: %w", ErrTransport, err)

		case msg := <-frames:
			lastSeen = time.Now()
			e.handleMessage(msg)

		case <-pingC:
			if time.Since(lastSeen) > 2*e.cfg.PingInterval {
				return fmt.Errorf("%w: %w", ErrTransport, ErrLivenessTimeout)
			}
			if err := ch.Send(sessCtx, api.Message{Type: api.MessagePing}); err != nil {
				return fmt.Errorf("%w: ping: %w", ErrTransport, err)
			}

		case <-syncC:
			// ошибки передаются в OnError
			_ = e.Sync(sessCtx)
		}
	}
}

// handleMessage обрабатывает входящий кадр. Неизвестные типы игнорируются.
func (e *Engine) handleMessage(msg api.Message) {
	switch msg.Type {
	case api.MessageUpdate:
		doc := e.document(msg.NoteID)
		if doc == nil {
			e.logger.Debug("Update for unregistered note ignored", "note_id", msg.NoteID)
			return
		}
		// ошибка уже передана в OnError
		_, _ = e.applyRemote(msg.NoteID, doc, msg.Update, "live")

	case api.MessagePong:
		// достаточно обновления lastSeen

	case api.MessageNoteCreated:
		if msg.Note == nil {
			return
		}
		e.notifyRemote(models.RemoteChanges{NewNotes: []models.RemoteNote{remoteNote(*msg.Note)}})

	case api.MessageNoteDeleted:
		if msg.NoteID == "" {
			return
		}
		e.notifyRemote(models.RemoteChanges{DeletedNotes: []string{msg.NoteID}})

	default:
		e.logger.Debug("Unknown live message ignored", "type", string(msg.Type))
	}
}

func (e *Engine) notifyRemote(changes models.RemoteChanges) {
	if e.deps.OnRemoteNotes != nil {
		e.deps.OnRemoteNotes(changes)
	}
}

func (e *Engine) subscribe(ctx context.Context, ch Channel, ids []string) error {
	if err := ch.Send(ctx, api.Message{Type: api.MessageSubscribe, NoteIDs: ids}); err != nil {
		err = fmt.Errorf("%w: subscribe: %w", ErrTransport, err)
		e.logger.Warn("Failed to subscribe notes", "count", len(ids), "error", err)
		return err
	}
	e.logger.Debug("Notes subscribed", "count", len(ids))
	return nil
}
