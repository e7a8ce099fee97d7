// Package realtime реализует live канал синхронизации поверх websocket.
// Каждый кадр - JSON сообщение api.Message в текстовом websocket кадре.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iudanet/gophnotes/pkg/api"
)

const (
	// DefaultWriteTimeout таймаут записи кадра, если у ctx нет дедлайна
	DefaultWriteTimeout = 10 * time.Second

	// maxMessageSize ограничение размера входящего кадра
	maxMessageSize = 16 << 20
)

// ErrClosed возвращается при работе с закрытым соединением
var ErrClosed = errors.New("live channel closed")

// Dialer открывает live канал к серверу
type Dialer struct {
	dialer *websocket.Dialer
	url    string
	token  string
}

// NewDialer создаёт Dialer для url вида ws(s)://host/sync/live
func NewDialer(url, token string) *Dialer {
	return &Dialer{
		url:   url,
		token: token,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// Dial открывает соединение
func (d *Dialer) Dial(ctx context.Context) (*Conn, error) {
	header := http.Header{}
	if d.token != "" {
		header.Set("Authorization", "Bearer "+d.token)
	}

	ws, resp, err := d.dialer.DialContext(ctx, d.url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to dial %s (status %d): %w", d.url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to dial %s: %w", d.url, err)
	}

	return NewConn(ws), nil
}

// Conn websocket соединение live канала.
// Send безопасен для конкурентного вызова, Receive вызывает один читатель.
type Conn struct {
	ws        *websocket.Conn
	closeOnce sync.Once
	closeErr  error
	writeMu   sync.Mutex
}

// NewConn оборачивает установленное websocket соединение
func NewConn(ws *websocket.Conn) *Conn {
	ws.SetReadLimit(maxMessageSize)
	return &Conn{ws: ws}
}

// Send отправляет сообщение
func (c *Conn) Send(ctx context.Context, msg api.Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(DefaultWriteTimeout)
	}
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if err := c.ws.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write %s message: %w", msg.Type, err)
	}
	return nil
}

// Receive блокируется до следующего сообщения.
// Отмена ctx прерывает ожидание.
func (c *Conn) Receive(ctx context.Context) (api.Message, error) {
	stop := context.AfterFunc(ctx, func() {
		// разблокирует ReadJSON
		_ = c.ws.SetReadDeadline(time.Now())
	})
	defer stop()

	var msg api.Message
	if err := c.ws.ReadJSON(&msg); err != nil {
		if ctx.Err() != nil {
			return api.Message{}, ctx.Err()
		}
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return api.Message{}, fmt.Errorf("%w: %w", ErrClosed, err)
		}
		return api.Message{}, fmt.Errorf("failed to read message: %w", err)
	}

	return msg, nil
}

// Close отправляет close кадр и закрывает соединение
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.writeMu.Unlock()

		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}
