package sync

import (
	"context"

	"github.com/iudanet/gophnotes/pkg/api"
)

//go:generate moq -out apiclient_mock.go . APIClient

// APIClient HTTP часть протокола синхронизации
type APIClient interface {
	Push(ctx context.Context, req api.PushRequest) (*api.PushResponse, error)
	Pull(ctx context.Context, req api.PullRequest) (*api.PullResponse, error)
}

// Channel открытый live канал к серверу
type Channel interface {
	// Send отправляет сообщение, безопасен для конкурентного вызова
	Send(ctx context.Context, msg api.Message) error

	// Receive блокируется до следующего сообщения или отмены ctx
	Receive(ctx context.Context) (api.Message, error)

	// Close закрывает канал, разблокируя Receive
	Close() error
}

// DialFunc открывает live канал
type DialFunc func(ctx context.Context) (Channel, error)
