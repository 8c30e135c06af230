// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Filipe Johansson

package mdcollab

import (
	"time"
)

// UniversalOption configures either a Server or a bare Handler. Options that
// only make sense on a Server return an error when applied to a Handler.
type UniversalOption func(HasHandler) error

type HasHandler interface {
	Handler() *Handler
}

// ===== SERVER ONLY =====

func WithPort(port int) UniversalOption {
	return func(h HasHandler) error {
		s, ok := h.(*Server)
		if !ok {
			return newWithOnlyServerError("port", h)
		}
		if port <= 0 || port > 65535 {
			return newInvalidPortError(port)
		}
		s.config.Port = port
		return nil
	}
}

// WithPath sets the websocket endpoint. A path without a leading slash gets
// one.
func WithPath(path string) UniversalOption {
	return func(h HasHandler) error {
		s, ok := h.(*Server)
		if !ok {
			return newWithOnlyServerError("path", h)
		}
		if path == "" {
			path = "/"
		}
		if path[0] != '/' {
			path = "/" + path
		}
		s.config.Path = path
		return nil
	}
}

func WithCORS(enabled bool) UniversalOption {
	return func(h HasHandler) error {
		s, ok := h.(*Server)
		if !ok {
			return newWithOnlyServerError("CORS", h)
		}
		s.config.EnableCORS = enabled
		return nil
	}
}

func WithSSL(certFile, keyFile string) UniversalOption {
	return func(h HasHandler) error {
		s, ok := h.(*Server)
		if !ok {
			return newWithOnlyServerError("SSL", h)
		}
		if certFile == "" || keyFile == "" {
			return ErrSSLFilesEmpty
		}
		s.config.EnableSSL = true
		s.config.CertFile = certFile
		s.config.KeyFile = keyFile
		return nil
	}
}

// ===== HANDLER =====

// WithMaxParticipants sets how many members a room admits before answering
// FULL.
func WithMaxParticipants(max int) UniversalOption {
	return func(h HasHandler) error {
		if max < 1 {
			return ErrMaxParticipantsLessThanOne
		}
		h.Handler().config.MaxParticipants = max
		return nil
	}
}

func WithMaxConnections(max, perIP int) UniversalOption {
	return func(h HasHandler) error {
		if max < 1 {
			return ErrMaxConnectionsLessThanOne
		}
		h.Handler().config.MaxConnections = max
		h.Handler().config.MaxConnectionsPerIP = perIP
		return nil
	}
}

func WithMessageSize(size int64) UniversalOption {
	return func(h HasHandler) error {
		if size < 1 {
			return ErrMessageSizeLessThanOne
		}
		h.Handler().config.MessageSize = size
		return nil
	}
}

func WithWriteTimeout(timeout time.Duration) UniversalOption {
	return func(h HasHandler) error {
		if timeout <= 0 {
			return ErrTimeoutsLessThanOne
		}
		h.Handler().config.WriteTimeout = timeout
		return nil
	}
}

// WithIdleTimeout drops connections that send no event for timeout.
func WithIdleTimeout(timeout time.Duration) UniversalOption {
	return func(h HasHandler) error {
		if timeout <= 0 {
			return ErrTimeoutsLessThanOne
		}
		h.Handler().config.IdleTimeout = timeout
		return nil
	}
}

func WithPingPong(pingPeriod, pongWait time.Duration) UniversalOption {
	return func(h HasHandler) error {
		if pingPeriod <= 0 || pongWait <= 0 {
			return ErrPingPongLessThanOne
		}
		if pongWait <= pingPeriod {
			return ErrPongWaitLessThanPing
		}
		h.Handler().config.PingPeriod = pingPeriod
		h.Handler().config.PongWait = pongWait
		return nil
	}
}

// WithSweepAt sets the local time of the daily empty-room sweep.
func WithSweepAt(hour, minute int) UniversalOption {
	return func(h HasHandler) error {
		if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
			return newInvalidSweepTimeError(hour, minute)
		}
		h.Handler().config.SweepHour = hour
		h.Handler().config.SweepMinute = minute
		return nil
	}
}

func WithAllowedOrigins(origins []string) UniversalOption {
	return func(h HasHandler) error {
		h.Handler().config.AllowedOrigins = origins
		return nil
	}
}

func WithMessageChanBufSize(size int) UniversalOption {
	return func(h HasHandler) error {
		if size < 1 {
			return ErrMessageSizeLessThanOne
		}
		h.Handler().config.MessageChanBufSize = size
		return nil
	}
}

func WithMiddleware(middleware Middleware) UniversalOption {
	return func(h HasHandler) error {
		handler := h.Handler()
		handler.middlewares = append(handler.middlewares, middleware)
		return nil
	}
}

// WithLogger replaces the logger and the per-type levels. A nil levels map
// keeps the current levels.
func WithLogger(logger Logger, levels map[LogType]LogLevel) UniversalOption {
	return func(h HasHandler) error {
		if logger == nil {
			return ErrLoggerNil
		}
		handler := h.Handler()
		handler.logger.Logger = logger
		if levels != nil {
			handler.logger.Level = levels
		}
		return nil
	}
}

func WithRateLimit(config RateLimiterConfig) UniversalOption {
	return func(h HasHandler) error {
		if config.PerClientRate <= 0 || config.PerIPRate <= 0 || config.PerClientBurst < 1 || config.PerIPBurst < 1 {
			return ErrInvalidRateLimit
		}
		if config.MaxRateLimitViolations < 1 {
			config.MaxRateLimitViolations = 1
		}
		handler := h.Handler()
		if handler.rateLimiter != nil {
			handler.rateLimiter.Stop()
		}
		handler.rateLimiter = NewRateLimiterManager(config)
		return nil
	}
}

// ===== EVENTS =====

func OnConnect(fn OnConnectFunc) UniversalOption {
	return func(h HasHandler) error {
		h.Handler().events.OnConnect = fn
		return nil
	}
}

func OnDisconnect(fn OnDisconnectFunc) UniversalOption {
	return func(h HasHandler) error {
		h.Handler().events.OnDisconnect = fn
		return nil
	}
}

func OnError(fn OnErrorFunc) UniversalOption {
	return func(h HasHandler) error {
		h.Handler().events.OnError = fn
		return nil
	}
}
