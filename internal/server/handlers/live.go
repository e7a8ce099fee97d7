package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/iudanet/gophnotes/internal/realtime"
	"github.com/iudanet/gophnotes/internal/server/live"
)

// LiveHandler поднимает websocket live канала и передаёт его hub
type LiveHandler struct {
	logger   *slog.Logger
	hub      *live.Hub
	upgrader websocket.Upgrader
}

// NewLiveHandler creates a new live channel handler
func NewLiveHandler(logger *slog.Logger, hub *live.Hub) *LiveHandler {
	return &LiveHandler{
		logger: logger,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// клиенты не браузерные, токен проверяет middleware
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Live обрабатывает GET /sync/live
func (h *LiveHandler) Live(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		h.logger.Warn("Failed to upgrade live connection", "error", err)
		return
	}

	if err := h.hub.Serve(r.Context(), realtime.NewConn(ws)); err != nil {
		h.logger.Debug("Live connection closed", "error", err)
	}
}
