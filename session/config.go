// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Filipe Johansson

package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Redirect reasons passed to Router.Redirect.
const (
	ReasonConnectionFailed = "connection_failed"
	ReasonRoomFull         = "room_full"
)

var (
	ErrServiceUnavailable = errors.New("collaboration service unavailable")
	ErrNoUser             = errors.New("no signed in user")
	ErrLoadDocument       = errors.New("failed to load document")
	ErrClosed             = errors.New("session closed")
	ErrAlreadyOpen        = errors.New("session already open")
	ErrInvalidOption      = errors.New("invalid option")
)

func newServiceUnavailableError(attempts int, err error) error {
	return fmt.Errorf("%w: %d attempts: %w", ErrServiceUnavailable, attempts, err)
}

func newLoadDocumentError(id string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrLoadDocument, id, err)
}

func newInvalidOptionError(name string, v any) error {
	return fmt.Errorf("%w: %s=%v", ErrInvalidOption, name, v)
}

type Config struct {
	URL               string        // relay websocket endpoint
	ReconnectAttempts int           // dial attempts before giving up
	ReconnectDelay    time.Duration // fixed wait between attempts
	IdleTimeout       time.Duration // drop the connection after this long without an event
	WriteTimeout      time.Duration
	SaveDelay         time.Duration // quiet period before a save
	ProjectListPath   string        // where failures redirect to
}

func DefaultConfig() *Config {
	return &Config{
		URL:               "ws://localhost:8080/ws",
		ReconnectAttempts: 10,
		ReconnectDelay:    2 * time.Second,
		IdleTimeout:       10 * time.Minute,
		WriteTimeout:      10 * time.Second,
		SaveDelay:         500 * time.Millisecond,
		ProjectListPath:   "/projects",
	}
}

type Option func(*Session) error

func WithURL(url string) Option {
	return func(s *Session) error {
		if url == "" {
			return newInvalidOptionError("url", url)
		}
		s.config.URL = url
		return nil
	}
}

// WithReconnect bounds how often and how fast the relay is redialed.
func WithReconnect(attempts int, delay time.Duration) Option {
	return func(s *Session) error {
		if attempts < 1 {
			return newInvalidOptionError("attempts", attempts)
		}
		if delay < 0 {
			return newInvalidOptionError("delay", delay)
		}
		s.config.ReconnectAttempts = attempts
		s.config.ReconnectDelay = delay
		return nil
	}
}

// WithIdleTimeout sets the idle window. Zero disables it.
func WithIdleTimeout(timeout time.Duration) Option {
	return func(s *Session) error {
		if timeout < 0 {
			return newInvalidOptionError("idle timeout", timeout)
		}
		s.config.IdleTimeout = timeout
		return nil
	}
}

func WithSaveDelay(delay time.Duration) Option {
	return func(s *Session) error {
		if delay <= 0 {
			return newInvalidOptionError("save delay", delay)
		}
		s.config.SaveDelay = delay
		return nil
	}
}

func WithProjectListPath(path string) Option {
	return func(s *Session) error {
		s.config.ProjectListPath = path
		return nil
	}
}

func WithRouter(r Router) Option {
	return func(s *Session) error {
		s.router = r
		return nil
	}
}

func WithHooks(h Hooks) Option {
	return func(s *Session) error {
		s.hooks = h
		return nil
	}
}

func WithDialer(d *websocket.Dialer) Option {
	return func(s *Session) error {
		if d == nil {
			return newInvalidOptionError("dialer", d)
		}
		s.dialer = d
		return nil
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) error {
		s.log = l
		return nil
	}
}
