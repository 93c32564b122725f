// Package server provides HTTP server lifecycle management with
// graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ShutdownFunc is a function that shuts down a component gracefully.
type ShutdownFunc func(ctx context.Context) error

// Server wraps http.Server with graceful shutdown.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	logger          *slog.Logger
	shutdownFuncs   []ShutdownFunc
	mu              sync.Mutex
}

// New creates a new Server instance.
func New(handler http.Handler, port int, readTimeout, writeTimeout, shutdownTimeout time.Duration, logger *slog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      handler,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
		shutdownTimeout: shutdownTimeout,
		logger:          logger,
	}
}

// OnShutdown registers a function called during graceful shutdown.
// Functions run in reverse registration order (LIFO) after the HTTP
// server stops, so the event worker registered first drains last, after
// no new events can arrive.
func (s *Server) OnShutdown(name string, fn ShutdownFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdownFuncs = append(s.shutdownFuncs, func(ctx context.Context) error {
		s.logger.Info("shutting down component", "name", name)
		if err := fn(ctx); err != nil {
			s.logger.Error("component shutdown error", "name", name, "error", err)
			return err
		}
		s.logger.Info("component stopped", "name", name)
		return nil
	})
}

// Run starts the server and blocks until a shutdown signal arrives.
// Handles graceful shutdown on SIGINT/SIGTERM.
func (s *Server) Run() error {
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)

	go func() {
		s.logger.Info("server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		s.logger.Info("shutdown signal received", "signal", sig.String())
		return s.gracefulShutdown()
	}
}

// gracefulShutdown stops the HTTP server, then the registered
// components, sharing one deadline.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.logger.Info("stopping HTTP server", "timeout", s.shutdownTimeout)
	s.httpServer.SetKeepAlivesEnabled(false)

	if err := s.httpServer.Shutdown(ctx); err != nil {
		// Components still get their shot at draining.
		s.logger.Error("HTTP server shutdown error", "error", err)
	}
	s.logger.Info("HTTP server stopped")

	s.mu.Lock()
	funcs := s.shutdownFuncs
	s.mu.Unlock()

	s.logger.Info("stopping registered components", "count", len(funcs))

	var errs []error
	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		s.logger.Error("shutdown completed with errors", "error_count", len(errs))
		return errs[0]
	}

	s.logger.Info("server stopped gracefully")
	return nil
}

// Addr returns the server address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
