// Package httpapi exposes the review-surface contract over HTTP: suggestion
// generation, lifecycle actions, direct job updates, and mirror reads.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opsboard/fieldsync/internal/config"
	"github.com/opsboard/fieldsync/internal/directory"
	"github.com/opsboard/fieldsync/internal/logger"
	"github.com/opsboard/fieldsync/internal/mirror"
	"github.com/opsboard/fieldsync/internal/suggest"
)

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	port       int
	bridge     *suggest.Bridge
	engine     *suggest.Engine
	directory  *directory.Directory
	store      *mirror.Store
	tenants    *Tenants
}

// New creates a new HTTP server instance.
func New(cfg *config.Config, tenants *Tenants, bridge *suggest.Bridge, engine *suggest.Engine, dir *directory.Directory, store *mirror.Store) *Server {
	s := &Server{
		port:      cfg.Port,
		bridge:    bridge,
		engine:    engine,
		directory: dir,
		store:     store,
		tenants:   tenants,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", HandleHealth())
	mux.HandleFunc("/suggestions", s.HandleSuggestions())
	mux.HandleFunc("/suggestions/", s.HandleSuggestionAction())
	mux.HandleFunc("/jobs/update", s.HandleJobUpdate())
	mux.HandleFunc("/mirror/job", s.HandleMirrorJob())

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", cfg.Port),
		Handler: mux,
	}
	return s
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server and blocks until shutdown.
// It handles graceful shutdown on SIGINT and SIGTERM.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Infof("Server", "Start", "listening on http://%s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-stop:
		logger.Infof("Server", "Start", "received %v, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}
	return nil
}
