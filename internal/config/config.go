// Package config загружает настройки клиента gophnotes из YAML файла.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Драйверы локального хранилища
const (
	DriverBolt   = "bolt"
	DriverBadger = "badger"
	DriverSQLite = "sqlite"
)

// ErrInvalidConfig возвращается, если конфигурация не прошла проверку
var ErrInvalidConfig = errors.New("invalid config")

// Config настройки клиента
type Config struct {
	ServerURL        string        `yaml:"server_url" validate:"required,url"`
	LiveURL          string        `yaml:"live_url" validate:"omitempty,url"` // по умолчанию выводится из server_url
	Token            string        `yaml:"token"`
	DataDir          string        `yaml:"data_dir" validate:"required"`
	StorageDriver    string        `yaml:"storage_driver" validate:"required,oneof=bolt badger sqlite"`
	LogLevel         string        `yaml:"log_level" validate:"required,oneof=debug info warn error"`
	MetricsAddr      string        `yaml:"metrics_addr" validate:"omitempty,hostname_port"`
	Debounce         time.Duration `yaml:"debounce" validate:"gt=0"`
	PingInterval     time.Duration `yaml:"ping_interval" validate:"gte=0"`
	SyncInterval     time.Duration `yaml:"sync_interval" validate:"gte=0"`
	RequestTimeout   time.Duration `yaml:"request_timeout" validate:"gt=0"`
	CompactThreshold int           `yaml:"compact_threshold" validate:"gt=0"`
}

// Default возвращает конфигурацию по умолчанию
func Default() Config {
	dataDir := ".gophnotes"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".gophnotes")
	}

	return Config{
		ServerURL:        "http://localhost:8080",
		DataDir:          dataDir,
		StorageDriver:    DriverBolt,
		LogLevel:         "info",
		Debounce:         5 * time.Second,
		CompactThreshold: 100,
		PingInterval:     30 * time.Second,
		SyncInterval:     60 * time.Second,
		RequestTimeout:   30 * time.Second,
	}
}

// Load читает конфигурацию из path поверх значений по умолчанию.
// Если файла нет, он создаётся со значениями по умолчанию.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := Write(path, cfg); err != nil {
			return Config{}, err
		}
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Write сохраняет конфигурацию в YAML, создавая каталог
func Write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	// файл содержит токен
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// Validate проверяет значения полей
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// LiveEndpoint возвращает адрес live канала.
// Если live_url не задан, схема server_url меняется на ws/wss.
func (c Config) LiveEndpoint() string {
	if c.LiveURL != "" {
		return c.LiveURL
	}

	base := strings.TrimSuffix(c.ServerURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/sync/live"
}

// StoragePath возвращает путь к файлу или каталогу локального хранилища
func (c Config) StoragePath() string {
	switch c.StorageDriver {
	case DriverBadger:
		return filepath.Join(c.DataDir, "badger")
	case DriverSQLite:
		return filepath.Join(c.DataDir, "notes.sqlite")
	default:
		return filepath.Join(c.DataDir, "notes.db")
	}
}

// SlogLevel переводит log_level в уровень slog
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
