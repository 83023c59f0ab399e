// Package api exposes the run-control surface: status, stop, result history,
// health, and metrics. It never touches classification logic.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"linkcheck/internal/config"
	"linkcheck/internal/runner"
	"linkcheck/internal/storage"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	config     *config.Config
	router     http.Handler
	httpServer *http.Server
	orch       *runner.Orchestrator
	audit      *storage.AuditStore // optional
	cache      *storage.CheckCache // optional
	logger     *zap.Logger
}

func NewServer(cfg *config.Config, orch *runner.Orchestrator, audit *storage.AuditStore, cache *storage.CheckCache, logger *zap.Logger) *Server {
	s := &Server{
		config: cfg,
		orch:   orch,
		audit:  audit,
		cache:  cache,
		logger: logger,
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%s", s.config.ServerPort),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
