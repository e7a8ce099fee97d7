package models

import "time"

// RemoteNote представляет заметку, о которой клиент узнал от сервера
// (pull newNotes или live сообщение noteCreated).
type RemoteNote struct {
	CreatedAt time.Time `json:"created_at"` // CreatedAt время создания заметки на сервере
	ID        string    `json:"id"`         // ID идентификатор заметки
	Title     string    `json:"title"`      // Title заголовок на момент выдачи
	Content   []byte    `json:"content"`    // Content полное закодированное состояние документа
	Starred   bool      `json:"starred"`    // Starred флаг избранного
}

// RemoteChanges содержит изменения в наборе заметок, которые движок синхронизации
// не применяет сам: создание и удаление записей заметок остаются за индексом заметок.
type RemoteChanges struct {
	NewNotes     []RemoteNote
	DeletedNotes []string
}

// Empty сообщает, что изменений нет
func (c RemoteChanges) Empty() bool {
	return len(c.NewNotes) == 0 && len(c.DeletedNotes) == 0
}
