package models

import "time"

// UpdateRecord представляет одно закодированное изменение заметки (CRDT delta),
// созданное локальной мутацией. Запись живёт в очереди синхронизации,
// пока сервер не подтвердит её обработку.
type UpdateRecord struct {
	CreatedAt time.Time `json:"created_at"` // CreatedAt время создания изменения
	NoteID    string    `json:"note_id"`    // NoteID идентификатор заметки
	Payload   []byte    `json:"payload"`    // Payload бинарная delta документа
}

// NewUpdateRecord создаёт запись, копируя payload:
// вызывающая сторона может переиспользовать свой буфер.
func NewUpdateRecord(noteID string, payload []byte, createdAt time.Time) UpdateRecord {
	data := make([]byte, len(payload))
	copy(data, payload)

	return UpdateRecord{
		NoteID:    noteID,
		Payload:   data,
		CreatedAt: createdAt,
	}
}

// TimestampMillis возвращает время создания в unix миллисекундах (формат протокола синхронизации)
func (r UpdateRecord) TimestampMillis() int64 {
	return r.CreatedAt.UnixMilli()
}
