// Package badger реализует клиентское хранилище документов на BadgerDB.
//
// Раскладка ключей:
//
//	snap\x00<noteID>              снапшот заметки
//	upd\x00<noteID>\x00<seq>      запись журнала, seq - big endian uint64
//	meta\x00last_sync_timestamp   время последней синхронизации
package badger

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	// sequenceBandwidth сколько номеров журнала арендуется за раз
	sequenceBandwidth = 128
)

var (
	prefixSnapshot = []byte("snap\x00")
	prefixUpdate   = []byte("upd\x00")
	keySequence    = []byte("meta\x00update_seq")
	keyLastSync    = []byte("meta\x00last_sync_timestamp")
)

// Config holds configuration for a BadgerDB instance.
type Config struct {
	// Logger для внутренних сообщений BadgerDB, nil отключает их
	Logger *slog.Logger

	// Path каталог с файлами базы, игнорируется при InMemory
	Path string

	// GCInterval период сборки мусора value log, 0 отключает
	GCInterval time.Duration

	// InMemory хранит данные только в памяти, для тестов
	InMemory bool

	// SyncWrites fsync на каждую запись, журнал должен переживать падение процесса
	SyncWrites bool
}

// DefaultConfig returns defaults for on-disk client storage.
func DefaultConfig(path string) Config {
	return Config{
		Path:       path,
		SyncWrites: true,
		GCInterval: 5 * time.Minute,
	}
}

// InMemoryConfig returns configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Storage represents BadgerDB storage implementation for client
type Storage struct {
	db     *badger.DB
	seq    *badger.Sequence
	logger *slog.Logger
	stopGC chan struct{}
	gcDone chan struct{}
	closed atomic.Bool
}

// New opens BadgerDB with the given configuration.
func New(cfg Config) (*Storage, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	seq, err := db.GetSequence(keySequence, sequenceBandwidth)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open update sequence: %w", err)
	}

	s := &Storage{
		db:     db,
		seq:    seq,
		logger: cfg.Logger,
	}

	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.stopGC = make(chan struct{})
		s.gcDone = make(chan struct{})
		go s.runGC(cfg.GCInterval)
	}

	return s, nil
}

// Close releases the sequence lease, stops GC and closes the database.
// Safe to call multiple times.
func (s *Storage) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	if s.stopGC != nil {
		close(s.stopGC)
		<-s.gcDone
	}

	var errs []error
	if err := s.seq.Release(); err != nil {
		errs = append(errs, fmt.Errorf("release update sequence: %w", err))
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close badger database: %w", err))
	}
	return errors.Join(errs...)
}

func (s *Storage) runGC(interval time.Duration) {
	defer close(s.gcDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			// ErrNoRewrite означает, что чистить нечего
			err := s.db.RunValueLogGC(0.5)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) && s.logger != nil {
				s.logger.Warn("badger value log GC error", "error", err)
			}
		}
	}
}
