// Package server собирает HTTP relay: маршруты, middleware и live hub.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/iudanet/gophnotes/internal/metrics"
	"github.com/iudanet/gophnotes/internal/server/handlers"
	"github.com/iudanet/gophnotes/internal/server/live"
	"github.com/iudanet/gophnotes/internal/server/middleware"
	"github.com/iudanet/gophnotes/internal/server/storage"
)

// Config параметры relay
type Config struct {
	Addr string

	// Token bearer токен клиентов, пустой отключает проверку
	Token string

	// ShutdownTimeout время на завершение активных запросов
	ShutdownTimeout time.Duration
}

// Server HTTP relay заметок
type Server struct {
	logger  *slog.Logger
	hub     *live.Hub
	handler http.Handler
	cfg     Config
}

// New создаёт relay поверх хранилища заметок
func New(cfg Config, logger *slog.Logger, notes storage.NoteStorage) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	hub := live.NewHub(logger)
	s := &Server{
		cfg:    cfg,
		logger: logger,
		hub:    hub,
	}
	s.handler = s.routes(notes)
	return s
}

func (s *Server) routes(notes storage.NoteStorage) http.Handler {
	healthHandler := handlers.NewHealthHandler(s.logger)
	syncHandler := handlers.NewSyncHandler(s.logger, notes, s.hub)
	notesHandler := handlers.NewNotesHandler(s.logger, notes, s.hub)
	liveHandler := handlers.NewLiveHandler(s.logger, s.hub)

	r := mux.NewRouter()
	r.Use(
		middleware.LoggingWithSkip(s.logger, []string{"/health", "/metrics"}),
		middleware.RecoveryMiddleware(s.logger),
	)

	// Публичные эндпоинты
	r.Methods(http.MethodGet).Path("/health").HandlerFunc(healthHandler.Health)
	r.Methods(http.MethodGet).Path("/metrics").Handler(metrics.Handler())

	// Эндпоинты под токеном. Маршруты регистрируются на корневом роутере,
	// иначе пустой subrouter отвечает 404 вместо 405 на чужой метод.
	auth := middleware.AuthMiddleware(s.logger, s.cfg.Token)
	r.Methods(http.MethodPost).Path("/sync/push").Handler(auth(http.HandlerFunc(syncHandler.Push)))
	r.Methods(http.MethodPost).Path("/sync/pull").Handler(auth(http.HandlerFunc(syncHandler.Pull)))
	r.Methods(http.MethodGet).Path("/sync/live").Handler(auth(http.HandlerFunc(liveHandler.Live)))
	r.Methods(http.MethodPost).Path("/notes").Handler(auth(http.HandlerFunc(notesHandler.Create)))
	r.Methods(http.MethodDelete).Path("/notes/{id}").Handler(auth(http.HandlerFunc(notesHandler.Delete)))

	return r
}

// Handler возвращает корневой http.Handler relay
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Hub возвращает hub live клиентов
func (s *Server) Hub() *live.Hub {
	return s.hub
}

// Run слушает cfg.Addr до отмены ctx, затем корректно останавливается
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Relay listening", "addr", s.cfg.Addr, "auth", s.cfg.Token != "")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Shutting down relay")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
		defer cancel()

		// Shutdown не закрывает websocket соединения
		s.hub.CloseAll()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
