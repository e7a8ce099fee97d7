// Package cli реализует команды gophnotes поверх локального хранилища и движка синхронизации.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	httpClient "github.com/iudanet/gophnotes/internal/client/api"
	"github.com/iudanet/gophnotes/internal/client/data"
	"github.com/iudanet/gophnotes/internal/client/iocli"
	"github.com/iudanet/gophnotes/internal/client/storage"
	"github.com/iudanet/gophnotes/internal/client/storage/badger"
	"github.com/iudanet/gophnotes/internal/client/storage/boltdb"
	"github.com/iudanet/gophnotes/internal/client/storage/sqlite"
	"github.com/iudanet/gophnotes/internal/client/store"
	clientsync "github.com/iudanet/gophnotes/internal/client/sync"
	"github.com/iudanet/gophnotes/internal/config"
	"github.com/iudanet/gophnotes/internal/models"
	"github.com/iudanet/gophnotes/internal/realtime"
)

// Backend сервер синхронизации: обмен изменениями и записи заметок
type Backend interface {
	clientsync.APIClient
	data.Remote
}

// LocalStorage локальное хранилище документов и метаданных синхронизации
type LocalStorage interface {
	storage.DocumentStorage
	storage.MetadataStorage
	Close() error
}

// Cli окружение одной команды
type Cli struct {
	io     iocli.IO
	logger *slog.Logger
	local  LocalStorage
	store  *store.Store
	engine *clientsync.Engine
	notes  *data.Service
	cfg    config.Config
}

// New собирает окружение из уже открытых зависимостей. dial может быть nil.
func New(ioc iocli.IO, logger *slog.Logger, cfg config.Config, local LocalStorage, backend Backend, dial clientsync.DialFunc) *Cli {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Cli{
		io:     ioc,
		logger: logger,
		local:  local,
		cfg:    cfg,
	}

	c.store = store.New(local,
		store.WithDebounce(cfg.Debounce),
		store.WithThreshold(cfg.CompactThreshold),
		store.WithLogger(logger),
	)

	c.engine = clientsync.NewEngine(clientsync.Config{
		PingInterval: cfg.PingInterval,
		SyncInterval: cfg.SyncInterval,
	}, clientsync.Deps{
		API:      backend,
		Dial:     dial,
		Metadata: local,
		Logger:   logger,
		OnStatus: func(status models.SyncStatus) {
			logger.Debug("Sync status changed", "status", status.String())
		},
		OnError: func(err error) {
			logger.Debug("Sync error", "error", err)
		},
		OnConflicts: func(ids []string) {
			// сервер не знает заметку, созданную офлайн, либо отверг изменения
			if err := c.notes.ResolveConflicts(context.Background(), ids); err != nil {
				logger.Warn("Failed to resolve conflicts", "error", err)
			}
		},
		OnRemoteNotes: func(changes models.RemoteChanges) {
			if err := c.notes.ApplyRemoteChanges(context.Background(), changes); err != nil {
				logger.Error("Failed to apply remote note changes", "error", err)
			}
		},
	})

	c.notes = data.NewService(c.store, c.engine, backend, logger)

	return c
}

// Open открывает окружение по конфигурации: хранилище выбранного драйвера,
// HTTP клиент и live канал.
func Open(ctx context.Context, ioc iocli.IO, logger *slog.Logger, cfg config.Config) (*Cli, error) {
	local, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	backend := httpClient.NewClient(cfg.ServerURL,
		httpClient.WithToken(cfg.Token),
		httpClient.WithTimeout(cfg.RequestTimeout),
		httpClient.WithLogger(logger),
	)

	dialer := realtime.NewDialer(cfg.LiveEndpoint(), cfg.Token)
	dial := func(ctx context.Context) (clientsync.Channel, error) {
		conn, err := dialer.Dial(ctx)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}

	return New(ioc, logger, cfg, local, backend, dial), nil
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (LocalStorage, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	path := cfg.StoragePath()
	logger.Debug("Opening local storage", "driver", cfg.StorageDriver, "path", path)

	var (
		local LocalStorage
		err   error
	)
	switch cfg.StorageDriver {
	case config.DriverBadger:
		bcfg := badger.DefaultConfig(path)
		bcfg.Logger = logger
		local, err = openAs(badger.New(bcfg))
	case config.DriverSQLite:
		local, err = openAs(sqlite.New(ctx, path))
	case config.DriverBolt:
		local, err = openAs(boltdb.New(ctx, path))
	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", config.ErrInvalidConfig, cfg.StorageDriver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.StorageDriver, err)
	}
	return local, nil
}

// openAs не даёт nil указателю драйвера превратиться в не-nil интерфейс
func openAs[S LocalStorage](s S, err error) (LocalStorage, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Close останавливает синхронизацию, сворачивает журналы и закрывает хранилище
func (c *Cli) Close(ctx context.Context) error {
	c.engine.Disconnect()

	var errs []error
	if err := c.store.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush notes: %w", err))
	}
	if err := c.local.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close storage: %w", err))
	}
	return errors.Join(errs...)
}

// pushQuietly отправляет локальные изменения сразу после команды.
// Без сети изменения остаются в журнале и уйдут при следующем sync.
func (c *Cli) pushQuietly(ctx context.Context) {
	if c.engine.PendingCount() == 0 {
		return
	}

	if _, err := c.engine.PushPendingUpdates(ctx); err != nil {
		if clientsync.IsTransportError(err) {
			c.io.Println("Offline: changes saved locally. Run 'gophnotes sync' when the server is reachable.")
			return
		}
		c.logger.Warn("Failed to push changes", "error", err)
	}
}
