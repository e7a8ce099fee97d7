// Package live раздаёт изменения заметок подключённым live клиентам.
package live

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/gophnotes/internal/metrics"
	"github.com/iudanet/gophnotes/internal/realtime"
	"github.com/iudanet/gophnotes/pkg/api"
)

// sendTimeout время на доставку одного кадра клиенту
const sendTimeout = 5 * time.Second

// Conn серверная сторона live соединения
type Conn interface {
	Send(ctx context.Context, msg api.Message) error
	Receive(ctx context.Context) (api.Message, error)
	Close() error
}

type client struct {
	conn Conn
	subs map[string]struct{}
	mu   sync.Mutex
}

func (c *client) subscribe(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range ids {
		c.subs[id] = struct{}{}
	}
}

func (c *client) subscribed(noteID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.subs[noteID]
	return ok
}

// Hub держит подключённых клиентов и их подписки
type Hub struct {
	logger  *slog.Logger
	clients map[*client]struct{}
	mu      sync.RWMutex
}

// NewHub создаёт Hub
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// Serve обслуживает соединение до его закрытия или отмены ctx.
// Обрабатывает subscribe и ping, остальные сообщения игнорирует.
func (h *Hub) Serve(ctx context.Context, conn Conn) error {
	c := &client{conn: conn, subs: make(map[string]struct{})}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	metrics.RelayConnections.Inc()
	h.logger.Info("Live client connected", "clients", count)

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		count := len(h.clients)
		h.mu.Unlock()
		metrics.RelayConnections.Dec()
		_ = conn.Close()
		h.logger.Info("Live client disconnected", "clients", count)
	}()

	for {
		msg, err := conn.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, realtime.ErrClosed) {
				return nil
			}
			return err
		}

		switch msg.Type {
		case api.MessageSubscribe:
			c.subscribe(msg.NoteIDs)
			h.logger.Debug("Live client subscribed", "count", len(msg.NoteIDs))
		case api.MessagePing:
			if err := h.send(ctx, c, api.Message{Type: api.MessagePong}); err != nil {
				return err
			}
		default:
			h.logger.Debug("Unexpected live message ignored", "type", string(msg.Type))
		}
	}
}

// PublishUpdate отправляет delta всем клиентам, подписанным на заметку
func (h *Hub) PublishUpdate(ctx context.Context, noteID string, update []byte) {
	msg := api.Message{Type: api.MessageUpdate, NoteID: noteID, Update: update}
	h.fanOut(ctx, msg, func(c *client) bool {
		return c.subscribed(noteID)
	})
}

// Broadcast отправляет сообщение всем клиентам (noteCreated, noteDeleted)
func (h *Hub) Broadcast(ctx context.Context, msg api.Message) {
	h.fanOut(ctx, msg, func(*client) bool { return true })
}

// Count возвращает число подключённых клиентов
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// CloseAll закрывает все соединения. http.Server.Shutdown не трогает
// захваченные websocket соединения, поэтому их закрывают отдельно.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		_ = c.conn.Close()
	}
}

func (h *Hub) fanOut(ctx context.Context, msg api.Message, match func(*client) bool) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		if match(c) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := h.send(ctx, c, msg); err != nil {
			// читатель этого клиента завершится и снимет регистрацию
			h.logger.Warn("Failed to deliver live message, closing client",
				"type", string(msg.Type),
				"note_id", msg.NoteID,
				"error", err,
			)
			_ = c.conn.Close()
		}
	}
}

func (h *Hub) send(ctx context.Context, c *client, msg api.Message) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()

	return c.conn.Send(ctx, msg)
}
