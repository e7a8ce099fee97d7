package sync

import "time"

// Config параметры движка синхронизации
type Config struct {
	// PingInterval период keepalive ping, 0 отключает keepalive.
	// Канал без входящих кадров дольше 2*PingInterval считается оборванным.
	PingInterval time.Duration

	// SyncInterval период push+pull при открытом канале, 0 отключает
	SyncInterval time.Duration

	// InitialBackoff задержка перед первой попыткой переподключения
	InitialBackoff time.Duration

	// MaxBackoff верхняя граница задержки переподключения
	MaxBackoff time.Duration

	// MaxReconnectAttempts число попыток переподключения подряд
	MaxReconnectAttempts int
}

// DefaultConfig возвращает параметры по умолчанию
func DefaultConfig() Config {
	return Config{
		PingInterval:         30 * time.Second,
		SyncInterval:         60 * time.Second,
		InitialBackoff:       time.Second,
		MaxBackoff:           30 * time.Second,
		MaxReconnectAttempts: 5,
	}
}

// withDefaults подставляет значения по умолчанию для незаданных параметров backoff
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = d.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = d.MaxBackoff
	}
	if c.MaxReconnectAttempts <= 0 {
		c.MaxReconnectAttempts = d.MaxReconnectAttempts
	}
	return c
}
