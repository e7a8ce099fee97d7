package api

// Байтовые поля ([]byte) кодируются encoding/json как стандартный base64,
// что совпадает с форматом, который ожидает сервер синхронизации.

// PushUpdate представляет одно локальное изменение заметки для отправки на сервер
type PushUpdate struct {
	NoteID    string `json:"noteId"`
	Update    []byte `json:"update"`    // CRDT delta (base64 в JSON)
	Timestamp int64  `json:"timestamp"` // время создания изменения, unix ms
}

// PushRequest представляет запрос POST /sync/push
type PushRequest struct {
	Updates []PushUpdate `json:"updates"`
}

// PushResponse представляет ответ сервера на push
type PushResponse struct {
	Processed  []string `json:"processed"`  // заметки, изменения которых приняты
	Conflicts  []string `json:"conflicts"`  // заметки, изменения которых сервер не принял
	ServerTime int64    `json:"serverTime"` // время сервера, unix ms
}

// PullRequest представляет запрос POST /sync/pull
type PullRequest struct {
	StateVectors map[string][]byte `json:"stateVectors"` // noteId -> state vector (base64 в JSON)
	Since        int64             `json:"since"`        // время последней синхронизации, unix ms
}

// NewNote описывает заметку, которой ещё нет на клиенте
type NewNote struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   []byte `json:"content"` // полное состояние документа (base64 в JSON)
	Starred   bool   `json:"starred"`
	CreatedAt int64  `json:"createdAt"`
}

// PullResponse представляет ответ сервера на pull
type PullResponse struct {
	Updates      map[string][][]byte `json:"updates"` // noteId -> список delta
	NewNotes     []NewNote           `json:"newNotes"`
	DeletedNotes []string            `json:"deletedNotes"`
	ServerTime   int64               `json:"serverTime"`
}

// MessageType определяет тип сообщения realtime канала
type MessageType string

const (
	MessageSubscribe   MessageType = "subscribe"
	MessageUpdate      MessageType = "update"
	MessagePing        MessageType = "ping"
	MessagePong        MessageType = "pong"
	MessageNoteCreated MessageType = "noteCreated"
	MessageNoteDeleted MessageType = "noteDeleted"
)

// Message представляет JSON-кадр realtime канала (/sync/live).
// Набор заполненных полей зависит от Type.
type Message struct {
	Note    *NewNote    `json:"note,omitempty"`    // noteCreated
	Type    MessageType `json:"type"`
	NoteID  string      `json:"noteId,omitempty"`  // update, noteDeleted
	NoteIDs []string    `json:"noteIds,omitempty"` // subscribe
	Update  []byte      `json:"update,omitempty"`  // update
}
