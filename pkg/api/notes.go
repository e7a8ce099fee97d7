package api

// CreateNoteRequest представляет запрос POST /notes.
// Content - полное состояние документа заметки.
type CreateNoteRequest struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content []byte `json:"content"`
	Starred bool   `json:"starred"`
}

// CreateNoteResponse представляет ответ на создание заметки
type CreateNoteResponse struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"createdAt"`
}

// DeleteNoteResponse представляет ответ DELETE /notes/{id}
type DeleteNoteResponse struct {
	DeletedAt int64 `json:"deletedAt"`
}

// HealthResponse представляет ответ GET /health
type HealthResponse struct {
	Status string `json:"status"`
	Time   int64  `json:"time"`
}
