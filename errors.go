// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Filipe Johansson

package mdcollab

import (
	"errors"
	"fmt"
)

var (
	// Server/Handler configuration errors
	ErrMaxConnectionsLessThanOne  = errors.New("max connections must be greater than 0")
	ErrMaxParticipantsLessThanOne = errors.New("max participants must be greater than 0")
	ErrMessageSizeLessThanOne     = errors.New("message size must be greater than 0")
	ErrTimeoutsLessThanOne        = errors.New("timeouts must be greater than 0")
	ErrPingPongLessThanOne        = errors.New("ping and pong wait periods must be greater than 0")
	ErrPongWaitLessThanPing       = errors.New("pong wait must be greater than ping period")
	ErrInvalidSweepTime           = errors.New("invalid sweep time")
	ErrInvalidRateLimit           = errors.New("invalid rate limit")
	ErrLoggerNil                  = errors.New("logger is nil")
	ErrSSLFilesEmpty              = errors.New("certFile or keyFile is empty")
	ErrWithOnlyServer             = errors.New("can only be set on server")
	ErrInvalidPort                = errors.New("invalid port")

	// Connection errors
	ErrMaxConnReached      = errors.New("max connections reached")
	ErrMaxConnPerIpReached = errors.New("max connections per ip reached")
	ErrTooManyRequests     = errors.New("too many requests")
	ErrRateLimitExceeded   = errors.New("rate limit exceeded")
	ErrIdleTimeout         = errors.New("idle timeout")

	// Server errors
	ErrServerAlreadyRunning = errors.New("server is already running")
	ErrServerNotRunning     = errors.New("server is not running")
	ErrServerStopped        = errors.New("server stopped with error")
	ErrServerShutdown       = errors.New("server shutdown")

	// Handler errors
	ErrSetWriteDeadline = errors.New("failed to set write deadline")
	ErrSetReadDeadline  = errors.New("failed to set read deadline")
	ErrUpgradeFailed    = errors.New("websocket upgrade failed")

	// Hub errors
	ErrHubStopped      = errors.New("hub is stopped")
	ErrClientNil       = errors.New("client is nil")
	ErrClientExists    = errors.New("client already registered")
	ErrRoomIDEmpty     = errors.New("room id cannot be empty")
	ErrRoomNotFound    = errors.New("room not found")
	ErrUnexpectedEvent = errors.New("unexpected event")
)

func newRoomNotFoundError(id string) error {
	return fmt.Errorf("%w: %s", ErrRoomNotFound, id)
}

func newClientExistsError(id string) error {
	return fmt.Errorf("%w: %s", ErrClientExists, id)
}

func newUnexpectedEventError(e any) error {
	return fmt.Errorf("%w: %T", ErrUnexpectedEvent, e)
}

func newSetWriteDeadlineError(err error) error {
	return fmt.Errorf("%w: %w", ErrSetWriteDeadline, err)
}

func newSetReadDeadlineError(err error) error {
	return fmt.Errorf("%w: %w", ErrSetReadDeadline, err)
}

func newUpgradeFailedError(err error) error {
	return fmt.Errorf("%w: %w", ErrUpgradeFailed, err)
}

func newServerStoppedError(err error) error {
	return fmt.Errorf("%w: %w", ErrServerStopped, err)
}

func newMaxConnPerIpReachedError(ip string) error {
	return fmt.Errorf("%w: %s", ErrMaxConnPerIpReached, ip)
}

func newWithOnlyServerError(t string, h HasHandler) error {
	return fmt.Errorf("%s %w, got %T", t, ErrWithOnlyServer, h)
}

func newInvalidPortError(port int) error {
	return fmt.Errorf("%w: %d", ErrInvalidPort, port)
}

func newInvalidSweepTimeError(hour, minute int) error {
	return fmt.Errorf("%w: %02d:%02d", ErrInvalidSweepTime, hour, minute)
}
