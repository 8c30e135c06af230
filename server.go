// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Filipe Johansson

package mdcollab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
)

// Server runs a Handler behind an HTTP listener. Besides the websocket
// endpoint it serves a presence snapshot per room and a health check:
//
//	GET <path>                 websocket endpoint
//	GET /rooms/{id}/members    current members of a room
//	GET /healthz               hub statistics
type Server struct {
	handler   *Handler
	config    *ServerConfig
	server    *http.Server
	isRunning bool
	mu        sync.RWMutex
}

func NewServer(options ...UniversalOption) (*Server, error) {
	h, err := NewHandler()
	if err != nil {
		return nil, err
	}

	s := &Server{
		handler: h,
		config:  DefaultServerConfig(),
	}

	for _, o := range options {
		if err := o(s); err != nil {
			h.Close()
			return nil, err
		}
	}

	return s, nil
}

func (s *Server) Handler() *Handler {
	return s.handler
}

func (s *Server) Config() ServerConfig {
	return *s.config
}

// Router returns the HTTP handler serving every endpoint of the server. It
// starts the hub if it is not running yet.
func (s *Server) Router() http.Handler {
	return s.router(context.Background())
}

func (s *Server) router(ctx context.Context) http.Handler {
	s.handler.Start(ctx)

	r := mux.NewRouter()
	r.Use(s.logRequests)
	if s.config.EnableCORS {
		r.Use(cors)
	}

	r.Methods(http.MethodGet).Path("/rooms/{id}/members").HandlerFunc(s.getMembers)
	r.Methods(http.MethodGet).Path("/healthz").HandlerFunc(s.getHealth)
	r.Path(s.config.Path).Handler(s.handler)

	return r
}

// Start listens on the configured port and blocks until the server stops.
// A server stopped through Stop or StopGracefully returns nil.
func (s *Server) Start() error {
	httpServer, err := s.prepare(context.Background())
	if err != nil {
		return err
	}

	s.log(LogTypeServer, LogLevelInfo, "mdcollab relay starting on port %d, path %s", s.config.Port, s.config.Path)

	err = s.listen(httpServer)

	s.mu.Lock()
	s.isRunning = false
	s.mu.Unlock()
	s.handler.Close()

	if errors.Is(err, http.ErrServerClosed) {
		s.log(LogTypeServer, LogLevelInfo, "mdcollab relay stopped gracefully")
		return nil
	}

	if err != nil {
		return newServerStoppedError(err)
	}

	return nil
}

// StartWithContext is Start bound to ctx: cancelling ctx shuts the server
// down gracefully and returns ctx.Err().
func (s *Server) StartWithContext(ctx context.Context) error {
	httpServer, err := s.prepare(ctx)
	if err != nil {
		return err
	}

	errChan := make(chan error, 1)

	go func() {
		s.log(LogTypeServer, LogLevelInfo, "mdcollab relay starting on port %d, path %s", s.config.Port, s.config.Path)
		err := s.listen(httpServer)
		if !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		s.handler.Close()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		s.log(LogTypeServer, LogLevelInfo, "mdcollab relay stopped by context")
		return ctx.Err()

	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		s.handler.Close()

		if err != nil {
			return newServerStoppedError(err)
		}
		return nil
	}
}

// Stop closes the listener and every connection immediately.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.isRunning || s.server == nil {
		s.mu.Unlock()
		return ErrServerNotRunning
	}
	s.isRunning = false
	httpServer := s.server
	s.mu.Unlock()

	s.handler.Close()

	return httpServer.Close()
}

// StopGracefully stops accepting connections and waits up to timeout for
// in-flight HTTP requests.
func (s *Server) StopGracefully(timeout time.Duration) error {
	s.mu.Lock()
	if !s.isRunning || s.server == nil {
		s.mu.Unlock()
		return ErrServerNotRunning
	}
	s.isRunning = false
	httpServer := s.server
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.handler.Close()

	return httpServer.Shutdown(ctx)
}

func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *Server) prepare(ctx context.Context) (*http.Server, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil, ErrServerAlreadyRunning
	}

	if s.config.Port <= 0 || s.config.Port > 65535 {
		return nil, newInvalidPortError(s.config.Port)
	}

	if s.config.EnableSSL && (s.config.CertFile == "" || s.config.KeyFile == "") {
		return nil, ErrSSLFilesEmpty
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.isRunning = true

	return s.server, nil
}

func (s *Server) listen(httpServer *http.Server) error {
	if s.config.EnableSSL {
		return httpServer.ListenAndServeTLS(s.config.CertFile, s.config.KeyFile)
	}
	return httpServer.ListenAndServe()
}

// ===== HTTP ENDPOINTS =====

func (s *Server) getMembers(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	members, err := s.handler.hub.Members(id)
	switch {
	case errors.Is(err, ErrRoomNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"roomId":  id,
		"members": members,
	})
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := s.handler.hub.Stats()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": err.Error()})
		return
	}

	total, _ := s.handler.ConnectionStats()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"connections": total,
		"hub":         stats,
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		s.log(LogTypeServer, LogLevelDebug, "handled %s %s status=%d duration=%s", r.Method, r.URL.Path, m.Code, m.Duration)
	})
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) log(logType LogType, level LogLevel, msg string, args ...interface{}) {
	s.handler.log(logType, level, msg, args...)
}
