// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Filipe Johansson

package session

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gorilla/websocket"

	"github.com/FilipeJohansson/mdcollab/protocol"
)

var errNotConnected = errors.New("not connected")

// dial connects to the relay, retrying at a fixed delay until the attempt
// budget is spent.
func (s *Session) dial(ctx context.Context) (*websocket.Conn, error) {
	var b backoff.BackOff = &backoff.StopBackOff{}
	if s.config.ReconnectAttempts > 1 {
		b = backoff.WithMaxRetries(
			backoff.NewConstantBackOff(s.config.ReconnectDelay),
			uint64(s.config.ReconnectAttempts-1),
		)
	}
	b.Reset()

	attempts := 0
	for {
		attempts++
		conn, _, err := s.dialer.DialContext(ctx, s.config.URL, nil)
		if err == nil {
			return conn, nil
		}
		s.log.Debug().Err(err).Int("attempt", attempts).Msg("dial failed")

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return nil, newServiceUnavailableError(attempts, err)
		}

		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil, newServiceUnavailableError(attempts, ctx.Err())
		case <-s.ctx.Done():
			t.Stop()
			return nil, ErrClosed
		}
	}
}

// readLoop reads relay events until the session closes. A lost connection
// is redialed and the room rejoined.
func (s *Session) readLoop(conn *websocket.Conn) {
	var reason string
	defer func() {
		s.wg.Done()
		if reason != "" {
			s.redirect(reason)
		}
	}()

	for conn != nil {
		err := s.readFrames(conn)

		if errors.Is(err, errStopReading) {
			s.detach(conn)
			closeConn(conn, s.config.WriteTimeout)
			reason = ReasonRoomFull
			return
		}
		if s.isClosed() {
			return
		}

		s.log.Warn().Err(err).Msg("connection lost, reconnecting")
		s.detach(conn)
		s.leaveOn(conn)
		_ = conn.Close()

		conn, err = s.reconnect()
		if err != nil {
			if !s.isClosed() {
				s.log.Error().Err(err).Msg("reconnect failed")
				reason = ReasonConnectionFailed
			}
			return
		}
	}
}

func (s *Session) readFrames(conn *websocket.Conn) error {
	for {
		if s.config.IdleTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(s.config.IdleTimeout)); err != nil {
				return err
			}
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		ev, err := protocol.DecodeBroadcast(data)
		if err != nil {
			s.log.Warn().Err(err).Msg("undecodable frame")
			continue
		}

		if !s.handle(ev) {
			return errStopReading
		}
	}
}

// reconnect dials again and rejoins the room at the current cursor. A local
// change that could not be sent meanwhile is sent right after the join.
func (s *Session) reconnect() (*websocket.Conn, error) {
	conn, err := s.dial(s.ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		_ = conn.Close()
		return nil, ErrClosed
	}

	s.conn = conn
	if err := s.sendLocked(protocol.JoinRequest{
		RoomID: s.docID,
		User:   s.user,
		Pos:    toWirePos(s.buf.Cursor()),
	}); err != nil {
		return conn, nil
	}

	if s.unsent {
		s.unsent = false
		if err := s.sendLocked(protocol.SyncRequest{
			RoomID: s.docID,
			UID:    s.user.UID,
			Pos:    toWirePos(s.buf.Cursor()),
			Doc:    s.buf.Value(),
		}); err != nil {
			s.unsent = true
		}
	}

	s.log.Info().Msg("rejoined after reconnect")
	return conn, nil
}

// detach forgets conn if it is still the current connection.
func (s *Session) detach(conn *websocket.Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
}

// leaveOn tells the relay, if it can still hear us, that this connection is
// done, so the rejoin does not race the disconnect.
func (s *Session) leaveOn(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	_ = write(conn, protocol.LeaveRequest{RoomID: s.docID, UID: s.user.UID}, s.config.WriteTimeout)
}

// sendLocked must be called with s.mu held.
func (s *Session) sendLocked(e protocol.Event) error {
	if s.conn == nil {
		return errNotConnected
	}
	return write(s.conn, e, s.config.WriteTimeout)
}

func write(conn *websocket.Conn, e protocol.Event, timeout time.Duration) error {
	frame, err := protocol.Encode(e)
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, frame)
}

func closeConn(conn *websocket.Conn, timeout time.Duration) {
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(timeout),
	)
	_ = conn.Close()
}
