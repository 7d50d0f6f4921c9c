// Package server provides the status HTTP endpoint for xbridge.
//
// The server is operational surface only: a liveness probe and a JSON
// snapshot of the local reconciliation state. It never mutates anything.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/gitcontest/xbridge/internal/config"
	"github.com/gitcontest/xbridge/internal/db"
)

// Server is the status HTTP server.
type Server struct {
	cfg        config.ServerConfig
	issues     *db.IssueRepo
	payments   *db.PaymentRepo
	started    time.Time
	httpServer *http.Server
	router     *http.ServeMux
	log        zerolog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg config.ServerConfig, issues *db.IssueRepo, payments *db.PaymentRepo, log zerolog.Logger) *Server {
	if cfg.Port == 0 {
		cfg.Port = 18081
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}

	s := &Server{
		cfg:      cfg,
		issues:   issues,
		payments: payments,
		started:  time.Now(),
		router:   http.NewServeMux(),
		log:      log.With().Str("component", "server").Logger(),
	}
	s.setupRoutes()
	return s
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.httpServer = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.log.Info().Str("addr", listener.Addr().String()).Msg("status server listening")
	return s.httpServer.Serve(listener)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.log.Info().Msg("shutting down status server")
	return s.httpServer.Shutdown(ctx)
}

// Address returns the configured server address.
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /healthz", s.handleHealth)
	s.router.HandleFunc("GET /api/status", s.handleStatus)
}
