package models

// SyncStatus представляет состояние соединения движка синхронизации
type SyncStatus int

const (
	StatusDisconnected SyncStatus = iota
	StatusConnecting
	StatusConnected
	StatusSyncing
	StatusSynced
)

// String возвращает имя статуса для логов и UI
func (s SyncStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusSyncing:
		return "syncing"
	case StatusSynced:
		return "synced"
	default:
		return "unknown"
	}
}

// Online сообщает, есть ли открытый канал к серверу.
// UI использует это, чтобы показать "Offline".
func (s SyncStatus) Online() bool {
	return s == StatusConnected || s == StatusSyncing || s == StatusSynced
}
