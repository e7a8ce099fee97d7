package store

import (
	"log/slog"
	"time"
)

const (
	// DefaultDebounce пауза без изменений, после которой заметка компактируется
	DefaultDebounce = 5 * time.Second

	// DefaultThreshold число записей журнала, после которого компакция выполняется сразу
	DefaultThreshold = 100
)

// Option настраивает Store
type Option func(*Store)

// WithDebounce задаёт паузу перед фоновой компакцией
func WithDebounce(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithThreshold задаёт размер журнала для немедленной компакции
func WithThreshold(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.threshold = n
		}
	}
}

// WithLogger задаёт логгер
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}
