package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gdugdh24/mpit2026-roulette/internal/config"
	"github.com/gdugdh24/mpit2026-roulette/internal/domain"
	"github.com/gin-gonic/gin"
)

// Server represents HTTP server
type Server struct {
	httpServer *http.Server
	config     *config.ServerConfig
	log        *slog.Logger
}

// NewServer creates a new HTTP server. WriteTimeout comes from config and
// is left at zero by default: session event streams stay open until the
// session ends.
func NewServer(cfg *config.ServerConfig, router *gin.Engine, log *slog.Logger) *Server {
	// Streams never go idle, so Shutdown cancels every request context
	// through this base context instead of waiting them out.
	baseCtx, cancel := context.WithCancelCause(context.Background())

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		MaxHeaderBytes:    1 << 20, // 1 MB
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	httpServer.RegisterOnShutdown(func() { cancel(domain.ErrServerShutdown) })

	return &Server{
		httpServer: httpServer,
		config:     cfg,
		log:        log,
	}
}

// Start blocks serving requests until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("starting server", "addr", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server. Open event streams are
// cancelled with domain.ErrServerShutdown so watchers do not treat them as
// users leaving.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info("server stopped")
	return nil
}
