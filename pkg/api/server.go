package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/asyncload/internal/logger"
)

// shutdownGrace bounds how long in-flight requests may finish once the
// serving context is canceled.
const shutdownGrace = 5 * time.Second

// Server serves the status and control API.
type Server struct {
	http   *http.Server
	config APIConfig
	bound  atomic.Pointer[string]
	stop   sync.Once
	err    error
}

// NewServer builds a stopped server. deps.Loader is required.
func NewServer(config APIConfig, deps Dependencies) (*Server, error) {
	if deps.Loader == nil {
		return nil, errors.New("API server requires a loader")
	}
	config.ApplyDefaults()

	return &Server{
		config: config,
		http: &http.Server{
			Addr:         net.JoinHostPort(config.Address, strconv.Itoa(config.Port)),
			Handler:      NewRouter(deps),
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
	}, nil
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("API server failed to listen on %s: %w", s.http.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully. It
// returns early with the error if serving fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	addr := ln.Addr().String()
	s.bound.Store(&addr)

	failed := make(chan error, 1)
	go func() {
		logger.Info("API server listening", "addr", addr)
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
	}()

	select {
	case err := <-failed:
		return fmt.Errorf("API server failed: %w", err)
	case <-ctx.Done():
	}

	// ctx is already canceled; shut down on a fresh deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return s.Stop(shutdownCtx)
}

// Stop shuts the server down. Calls after the first return the first
// result.
func (s *Server) Stop(ctx context.Context) error {
	s.stop.Do(func() {
		if err := s.http.Shutdown(ctx); err != nil {
			s.err = fmt.Errorf("API server shutdown: %w", err)
			logger.Error("API server shutdown failed", logger.Err(err))
			return
		}
		logger.Info("API server stopped")
	})
	return s.err
}

// Port returns the configured TCP port.
func (s *Server) Port() int {
	return s.config.Port
}

// Addr returns the address being served, or "" before Serve.
func (s *Server) Addr() string {
	if a := s.bound.Load(); a != nil {
		return *a
	}
	return ""
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}
