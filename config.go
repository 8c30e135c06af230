// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Filipe Johansson

package mdcollab

import (
	"net/http"
	"time"
)

type HandlerConfig struct {
	MaxConnections      int
	MaxConnectionsPerIP int
	MaxParticipants     int // members allowed per room
	MessageSize         int64
	WriteTimeout        time.Duration
	PingPeriod          time.Duration
	PongWait            time.Duration
	IdleTimeout         time.Duration // no application message for this long drops the connection
	SweepHour           int           // local wall-clock time of the daily empty-room sweep
	SweepMinute         int
	AllowedOrigins      []string
	MessageChanBufSize  int
}

type ServerConfig struct {
	Port       int
	Path       string
	EnableCORS bool
	EnableSSL  bool
	CertFile   string
	KeyFile    string
}

type RateLimiterConfig struct {
	PerClientRate          float64 // events per second
	PerClientBurst         int
	PerIPRate              float64
	PerIPBurst             int
	MaxRateLimitViolations int
	CleanupInterval        time.Duration
	EntryTTL               time.Duration
}

type Middleware func(http.Handler) http.Handler

func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:       8080,
		Path:       "/ws",
		EnableCORS: true,
		EnableSSL:  false,
	}
}

func DefaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		MaxConnections:      1000,
		MaxConnectionsPerIP: 50,
		MaxParticipants:     10,
		MessageSize:         512 * 1024,
		WriteTimeout:        10 * time.Second,
		PingPeriod:          54 * time.Second,
		PongWait:            60 * time.Second,
		IdleTimeout:         10 * time.Minute,
		SweepHour:           2,
		SweepMinute:         30,
		MessageChanBufSize:  256,
	}
}

// DefaultRateLimiterConfig allows a fast typist plus cursor moves on every
// keystroke.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		PerClientRate:          30,
		PerClientBurst:         60,
		PerIPRate:              100,
		PerIPBurst:             200,
		MaxRateLimitViolations: 20,
		CleanupInterval:        time.Minute,
		EntryTTL:               10 * time.Minute,
	}
}
