// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Filipe Johansson

package mdcollab

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/FilipeJohansson/mdcollab/protocol"
)

type OnConnectFunc func(c *Client) error
type OnDisconnectFunc func(c *Client)
type OnErrorFunc func(c *Client, err error)

type Events struct {
	OnConnect    OnConnectFunc
	OnDisconnect OnDisconnectFunc
	OnError      OnErrorFunc
}

// Handler upgrades HTTP requests to websocket connections and feeds the
// events they carry to its Hub.
type Handler struct {
	hub    IHub
	config *HandlerConfig
	events *Events

	upgrader    websocket.Upgrader
	startOnce   sync.Once
	middlewares []Middleware

	connectionPool *ConnectionPool
	logger         *LoggerConfig
	rateLimiter    RateLimiter
}

// NewHandler returns a Handler with DefaultHandlerConfig, the default logger
// and the default rate limits, adjusted by options. The hub starts with the
// first request, or with Start.
func NewHandler(options ...UniversalOption) (*Handler, error) {
	h := &Handler{
		config: DefaultHandlerConfig(),
		events: &Events{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:      DefaultLoggerConfig(),
		rateLimiter: NewRateLimiterManager(DefaultRateLimiterConfig()),
	}
	h.upgrader.CheckOrigin = h.checkOrigin
	h.hub = NewHub(h.config, h.logger)

	for _, o := range options {
		if err := o(h); err != nil {
			h.rateLimiter.Stop()
			return nil, err
		}
	}

	return h, nil
}

func (h *Handler) Config() HandlerConfig {
	return *h.config
}

func (h *Handler) Hub() IHub {
	return h.hub
}

func (h *Handler) Handler() *Handler {
	return h
}

// ===== LIFECYCLE =====

// Start initializes the connection pool and runs the hub until ctx is done.
// Only the first call has an effect.
func (h *Handler) Start(ctx context.Context) {
	h.startOnce.Do(func() {
		h.initConnectionPool()
		safeGoroutine("Hub", func() {
			h.hub.Run(ctx)
		})
	})
}

// Close stops the hub, which closes every client connection.
func (h *Handler) Close() {
	h.hub.Stop()
	if h.rateLimiter != nil {
		h.rateLimiter.Stop()
	}
}

// ===== CONTROLLERS =====

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Start(context.Background())

	var handler http.Handler = http.HandlerFunc(h.HandleWebSocket)
	for i := len(h.middlewares) - 1; i >= 0; i-- {
		handler = h.middlewares[i](handler)
	}
	handler.ServeHTTP(w, r)
}

// HandleWebSocket upgrades the request, registers the connection with the hub
// and starts its read and write pumps.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			h.log(LogTypeError, LogLevelError, "PANIC RECOVERED in HandleWebSocket: %v\nStack trace:\n%s\n", rec, string(debug.Stack()))
		}
	}()

	info := newConnectionInfo(r)

	if h.rateLimiter != nil && !h.rateLimiter.AllowConnection(info.ClientIP) {
		h.log(LogTypeRateLimit, LogLevelWarn, "Connection rate exceeded for %s", info.ClientIP)
		http.Error(w, ErrTooManyRequests.Error(), http.StatusTooManyRequests)
		return
	}

	if h.connectionPool != nil {
		if err := h.connectionPool.Acquire(info.ClientIP); err != nil {
			h.log(LogTypeConnection, LogLevelWarn, "Connection rejected for %s: %v", info.ClientIP, err)
			http.Error(w, "Too many connections", http.StatusTooManyRequests)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.releaseSlot(info)
		h.handleError(nil, newUpgradeFailedError(err))
		return
	}

	client := NewClient(GenerateConnectionID(), conn, h.config.MessageChanBufSize)
	client.ConnInfo = info

	conn.SetReadLimit(h.config.MessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(h.config.PongWait)); err != nil {
		h.handleError(client, newSetReadDeadlineError(err))
		_ = conn.Close()
		h.releaseSlot(info)
		return
	}
	conn.SetPongHandler(func(string) error {
		if err := conn.SetReadDeadline(time.Now().Add(h.config.PongWait)); err != nil {
			return newSetReadDeadlineError(err)
		}
		return nil
	})

	if err := h.hub.AddClient(client); err != nil {
		h.log(LogTypeConnection, LogLevelWarn, "Could not register %s: %v", client.ID, err)
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ErrServerShutdown.Error()),
			time.Now().Add(h.config.WriteTimeout),
		)
		_ = conn.Close()
		h.releaseSlot(info)
		return
	}

	if h.events.OnConnect != nil {
		if err := h.events.OnConnect(client); err != nil {
			h.log(LogTypeConnection, LogLevelInfo, "OnConnect rejected %s: %v", client.ID, err)
			_ = h.hub.RemoveClient(client.ID)
			_ = conn.Close()
			h.releaseSlot(info)
			return
		}
	}
	h.log(LogTypeConnection, LogLevelInfo, "%s connected from %s", client.ID, info.ClientIP)

	safeGoroutine("ClientWrite", func() {
		h.writePump(client, conn)
	})

	safeGoroutine("ClientRead", func() {
		h.readPump(client, conn)
	})
}

func (h *Handler) ConnectionStats() (int, map[string]int) {
	if h.connectionPool == nil {
		return 0, nil
	}
	return h.connectionPool.Stats()
}

// writePump sends queued frames and keepalive pings. It also closes the
// connection once the client has been idle longer than IdleTimeout.
func (h *Handler) writePump(client *Client, conn *websocket.Conn) {
	ticker := time.NewTicker(h.config.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case frame, ok := <-client.MessageChan:
			if !ok {
				h.log(LogTypeMessage, LogLevelDebug, "%s write channel closed", client.ID)
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(h.config.WriteTimeout))
				return
			}

			if err := conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout)); err != nil {
				h.handleError(client, newSetWriteDeadlineError(err))
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				h.log(LogTypeMessage, LogLevelDebug, "%s write error: %v", client.ID, err)
				return
			}
			h.log(LogTypeMessage, LogLevelDebug, "%s wrote: %s", client.ID, frame)

		case now := <-ticker.C:
			if h.config.IdleTimeout > 0 && client.IdleFor(now) > h.config.IdleTimeout {
				h.log(LogTypeConnection, LogLevelInfo, "%s idle for %s, closing", client.ID, client.IdleFor(now).Round(time.Second))
				_ = conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ErrIdleTimeout.Error()),
					time.Now().Add(h.config.WriteTimeout),
				)
				return
			}

			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.config.WriteTimeout)); err != nil {
				h.log(LogTypeMessage, LogLevelDebug, "%s ping error: %v", client.ID, err)
				return
			}
		}
	}
}

// readPump decodes incoming frames and dispatches them to the hub until the
// connection fails. Malformed frames are logged and skipped.
func (h *Handler) readPump(client *Client, conn *websocket.Conn) {
	defer func() {
		if rec := recover(); rec != nil {
			h.log(LogTypeError, LogLevelError, "PANIC RECOVERED in readPump (Client: %s): %v", client.ID, rec)
		}
		h.cleanupClient(client, conn)
	}()

	maxViolations := 1
	if h.rateLimiter != nil {
		maxViolations = h.rateLimiter.MaxViolations()
	}
	violations := 0

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.log(LogTypeConnection, LogLevelDebug, "%s read error: %v", client.ID, err)
				h.handleError(client, err)
			}
			return
		}

		if err := conn.SetReadDeadline(time.Now().Add(h.config.PongWait)); err != nil {
			h.handleError(client, newSetReadDeadlineError(err))
			return
		}

		if h.rateLimiter != nil && !h.rateLimiter.AllowEvent(client.ID, client.ConnInfo.ClientIP) {
			violations++
			h.log(LogTypeRateLimit, LogLevelInfo, "Rate limit exceeded for client %s (%d/%d violations)", client.ID, violations, maxViolations)

			if violations >= maxViolations {
				_ = conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, ErrRateLimitExceeded.Error()),
					time.Now().Add(h.config.WriteTimeout),
				)
				return
			}
			continue
		}

		client.Touch()
		h.log(LogTypeMessage, LogLevelDebug, "%s read: %s", client.ID, data)

		ev, err := protocol.DecodeRequest(data)
		if err != nil {
			h.log(LogTypeMessage, LogLevelWarn, "%s sent an undecodable frame: %v", client.ID, err)
			h.handleError(client, err)
			continue
		}

		if err := h.hub.Dispatch(client.ID, ev); err != nil {
			if errors.Is(err, ErrHubStopped) {
				return
			}
			h.log(LogTypeError, LogLevelWarn, "%s %s: %v", client.ID, ev.Kind(), err)
			h.handleError(client, err)
		}
	}
}

func (h *Handler) cleanupClient(client *Client, conn *websocket.Conn) {
	if err := h.hub.RemoveClient(client.ID); err != nil && !errors.Is(err, ErrHubStopped) {
		h.log(LogTypeError, LogLevelError, "Removing %s: %v", client.ID, err)
	}

	_ = conn.Close()
	h.releaseSlot(client.ConnInfo)

	if h.rateLimiter != nil {
		h.rateLimiter.Forget(client.ID)
	}

	h.log(LogTypeConnection, LogLevelInfo, "%s disconnected", client.ID)

	if h.events.OnDisconnect != nil {
		h.events.OnDisconnect(client)
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.config.AllowedOrigins) == 0 {
		return true
	}

	origin := r.Header.Get("Origin")
	for _, allowed := range h.config.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

func (h *Handler) initConnectionPool() {
	if h.config.MaxConnections > 0 {
		h.connectionPool = NewConnectionPool(
			h.config.MaxConnections,
			h.config.MaxConnectionsPerIP,
		)
		h.log(LogTypeConnection, LogLevelDebug,
			"Connection pool initialized: max_total=%d, max_per_ip=%d",
			h.config.MaxConnections, h.config.MaxConnectionsPerIP)
	} else {
		h.log(LogTypeConnection, LogLevelWarn, "Connection pool disabled: MaxConnections is 0")
	}
}

func (h *Handler) releaseSlot(info *ConnectionInfo) {
	if h.connectionPool != nil && info != nil {
		h.connectionPool.Release(info.ClientIP)
	}
}

func (h *Handler) handleError(client *Client, err error) {
	if h.events.OnError != nil {
		h.events.OnError(client, err)
	}
}

func (h *Handler) log(logType LogType, level LogLevel, msg string, args ...interface{}) {
	h.logger.log(logType, level, msg, args...)
}
