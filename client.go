// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Filipe Johansson

package mdcollab

import (
	"sync/atomic"
	"time"
)

type IWebSocketConn interface {
	Close() error
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
}

// Client is one websocket connection to the relay.
//
// MessageChan carries encoded frames to the connection's write pump. It is
// closed by the Hub when the client is removed, never by anyone else.
type Client struct {
	ID          string
	Conn        IWebSocketConn
	MessageChan chan []byte
	ConnInfo    *ConnectionInfo

	lastActivity atomic.Int64
}

// NewClient creates a Client with a message channel of messageChanBufSize
// frames. A client whose channel fills up is considered too slow and is
// dropped by the hub.
func NewClient(id string, conn IWebSocketConn, messageChanBufSize int) *Client {
	c := &Client{
		ID:          id,
		Conn:        conn,
		MessageChan: make(chan []byte, messageChanBufSize),
	}
	c.Touch()
	return c
}

// Touch records application activity on the connection.
func (c *Client) Touch() {
	c.lastActivity.Store(time.Now().UnixNano())
}

func (c *Client) LastActivity() time.Time {
	return time.Unix(0, c.lastActivity.Load())
}

// IdleFor reports how long the client has gone without sending an event.
func (c *Client) IdleFor(now time.Time) time.Duration {
	return now.Sub(c.LastActivity())
}
