package sync

import (
	"errors"

	httpClient "github.com/iudanet/gophnotes/internal/client/api"
)

var (
	// ErrTransport оборачивает ошибки live канала: dial, чтение, запись, таймаут keepalive
	ErrTransport = errors.New("live channel error")

	// ErrNoDialer возвращается Connect, если live канал не настроен
	ErrNoDialer = errors.New("live channel is not configured")

	// ErrLivenessTimeout сервер перестал отвечать на ping
	ErrLivenessTimeout = errors.New("no frames from server within liveness timeout")
)

// IsTransportError сообщает, вызвана ли ошибка сетью (HTTP или live канал).
// Такие ошибки не трогают очередь и исправляются повтором.
func IsTransportError(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, httpClient.ErrTransport)
}
