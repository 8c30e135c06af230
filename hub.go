// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Filipe Johansson

package mdcollab

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/FilipeJohansson/mdcollab/protocol"
)

type IHub interface {
	Run(ctx context.Context)
	Stop()
	IsRunning() bool
	AddClient(client *Client) error
	RemoveClient(id string) error
	Dispatch(connectionID string, e protocol.Event) error
	Members(roomID string) ([]protocol.Member, error)
	Sweep() (int, error)
	Stats() (HubStats, error)
}

// Hub owns the room registry, the connection registry and the connected
// clients. All of them are only read and written by the goroutine running
// Run; every exported method hands its work to that loop and waits for it.
// Broadcasts for a room therefore leave in the order the originating events
// were processed.
type Hub struct {
	rooms   map[string]*Room   // roomID -> room
	conns   map[string]string  // connectionID -> roomID
	clients map[string]*Client // connectionID -> client
	dropped []string           // clients found too slow during the current op

	config *HandlerConfig
	logger *LoggerConfig
	now    func() time.Time

	ops      chan func()
	quit     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	totalConnections uint64
	eventsReceived   uint64
	framesSent       uint64
	framesDropped    uint64
	roomsEvicted     uint64
	startTime        time.Time
}

func NewHub(config *HandlerConfig, logger *LoggerConfig) *Hub {
	if config == nil {
		config = DefaultHandlerConfig()
	}
	if logger == nil {
		logger = DefaultLoggerConfig()
	}

	return &Hub{
		rooms:   make(map[string]*Room),
		conns:   make(map[string]string),
		clients: make(map[string]*Client),
		config:  config,
		logger:  logger,
		now:     time.Now,
		ops:     make(chan func()),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Run processes hub operations until ctx is done or Stop is called. It also
// runs the daily empty-room sweep. A second call while running returns
// immediately.
func (h *Hub) Run(ctx context.Context) {
	if !h.running.CompareAndSwap(false, true) {
		return
	}
	defer close(h.stopped)

	h.startTime = h.now()
	h.log(LogTypeServer, LogLevelInfo, "Hub started")

	sweep := time.NewTimer(h.untilNextSweep())
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case <-h.quit:
			h.shutdown()
			return

		case op := <-h.ops:
			op()
			h.flushDropped()

		case <-sweep.C:
			n := h.sweep()
			h.flushDropped()
			h.log(LogTypeRoom, LogLevelInfo, "Scheduled sweep removed %d empty rooms", n)
			sweep.Reset(h.untilNextSweep())
		}
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.quit)
	})
}

func (h *Hub) IsRunning() bool {
	if !h.running.Load() {
		return false
	}
	select {
	case <-h.stopped:
		return false
	default:
		return true
	}
}

// do runs fn on the hub loop and waits for it to finish.
func (h *Hub) do(fn func()) error {
	done := make(chan struct{})
	op := func() {
		fn()
		close(done)
	}

	select {
	case h.ops <- op:
	case <-h.quit:
		return ErrHubStopped
	case <-h.stopped:
		return ErrHubStopped
	}

	select {
	case <-done:
		return nil
	case <-h.stopped:
		select {
		case <-done:
			return nil
		default:
			return ErrHubStopped
		}
	}
}

// ===== CONNECTIONS =====

func (h *Hub) AddClient(client *Client) error {
	if client == nil {
		return ErrClientNil
	}

	var err error
	if doErr := h.do(func() {
		if _, exists := h.clients[client.ID]; exists {
			err = newClientExistsError(client.ID)
			return
		}
		h.clients[client.ID] = client
		h.totalConnections++
		h.log(LogTypeClient, LogLevelDebug, "Client registered: %s (total: %d)", client.ID, len(h.clients))
	}); doErr != nil {
		return doErr
	}
	return err
}

// RemoveClient handles a closed connection: the member bound to it leaves its
// room and the client's message channel is closed.
func (h *Hub) RemoveClient(id string) error {
	return h.do(func() {
		h.removeClient(id)
	})
}

func (h *Hub) removeClient(id string) {
	client, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	close(client.MessageChan)

	h.detach(id)
	h.log(LogTypeClient, LogLevelDebug, "Client unregistered: %s (total: %d)", id, len(h.clients))
}

// detach unbinds a connection from its room. The member holding that
// connection is removed and the rest of the room gets a presence snapshot.
func (h *Hub) detach(connectionID string) {
	roomID, ok := h.conns[connectionID]
	if !ok {
		return
	}
	delete(h.conns, connectionID)

	room, ok := h.rooms[roomID]
	if !ok {
		return
	}
	room.RemoveClient(connectionID)

	if room.RemoveMemberByConnection(connectionID) {
		h.log(LogTypeRoom, LogLevelInfo, "Connection %s dropped from room %s (%d left)", connectionID, roomID, room.Len())
		h.broadcast(room, protocol.QueryResponse{Members: room.Members()})
	}

	if room.Empty() {
		h.evict(room)
	}
}

// ===== EVENTS =====

// Dispatch routes a decoded client event to its handler. Events from a
// connection that is not registered are ignored.
func (h *Hub) Dispatch(connectionID string, e protocol.Event) error {
	switch ev := e.(type) {
	case protocol.JoinRequest:
		return h.Join(connectionID, ev)
	case protocol.SyncRequest:
		return h.Sync(connectionID, ev)
	case protocol.LeaveRequest:
		return h.Leave(connectionID, ev)
	case protocol.QueryRequest:
		return h.Query(connectionID, ev)
	default:
		return newUnexpectedEventError(e)
	}
}

// Join adds the requesting user to the room, creating the room on first
// join. A room at capacity answers FULL to the requester only. A user whose
// uid is already a member keeps the existing entry.
func (h *Hub) Join(connectionID string, req protocol.JoinRequest) error {
	if req.RoomID == "" {
		return ErrRoomIDEmpty
	}

	return h.do(func() {
		client, ok := h.clients[connectionID]
		if !ok {
			return
		}
		h.eventsReceived++

		room, exists := h.rooms[req.RoomID]
		if exists && room.Len() >= h.config.MaxParticipants {
			h.log(LogTypeRoom, LogLevelInfo, "Room %s is full, refusing %s", req.RoomID, req.User.UID)
			h.send(client, protocol.Full{})
			return
		}

		if prev, bound := h.conns[connectionID]; bound && prev != req.RoomID {
			h.detach(connectionID)
			room, exists = h.rooms[req.RoomID]
		}

		if !exists {
			room = NewRoom(req.RoomID)
			h.rooms[req.RoomID] = room
			h.log(LogTypeRoom, LogLevelDebug, "Room %s created", req.RoomID)
		}

		if room.AddMember(protocol.NewMember(req.User, connectionID, req.Pos)) {
			h.log(LogTypeRoom, LogLevelInfo, "%s joined room %s (%d members)", req.User.UID, req.RoomID, room.Len())
		}
		h.conns[connectionID] = req.RoomID
		room.AddClient(client)

		h.broadcast(room, protocol.JoinBroadcast{Members: room.Members(), JoiningUser: req.User})
		h.broadcast(room, protocol.QueryResponse{Members: room.Members()})
	})
}

// Sync updates the sender's cursor and relays the full document to the
// room. Events for an unknown room or uid are stale and dropped.
func (h *Hub) Sync(connectionID string, req protocol.SyncRequest) error {
	return h.do(func() {
		if _, ok := h.clients[connectionID]; !ok {
			return
		}
		h.eventsReceived++

		room, ok := h.rooms[req.RoomID]
		if !ok || !room.UpdatePos(req.UID, req.Pos) {
			h.log(LogTypeMessage, LogLevelDebug, "Stale sync from %s for room %s", req.UID, req.RoomID)
			return
		}

		doc := req.Doc
		h.broadcast(room, protocol.SyncBroadcast{Members: room.Members(), Doc: &doc, From: req.UID})
	})
}

// Leave removes the member and unbinds the requesting connection from the
// room. A later disconnect of the same connection is then a no-op.
func (h *Hub) Leave(connectionID string, req protocol.LeaveRequest) error {
	return h.do(func() {
		if _, ok := h.clients[connectionID]; !ok {
			return
		}
		h.eventsReceived++

		room, ok := h.rooms[req.RoomID]
		if !ok {
			return
		}

		if h.conns[connectionID] == req.RoomID {
			delete(h.conns, connectionID)
		}
		room.RemoveClient(connectionID)

		if room.RemoveMember(req.UID) {
			h.log(LogTypeRoom, LogLevelInfo, "%s left room %s (%d left)", req.UID, req.RoomID, room.Len())
			members := room.Members()
			h.broadcast(room, protocol.SyncBroadcast{Members: members, From: req.UID})
			h.broadcast(room, protocol.QueryResponse{Members: members})
		}

		if room.Empty() {
			h.evict(room)
		}
	})
}

// Query answers the requester with the room's current members. Unknown
// rooms have none.
func (h *Hub) Query(connectionID string, req protocol.QueryRequest) error {
	return h.do(func() {
		client, ok := h.clients[connectionID]
		if !ok {
			return
		}
		h.eventsReceived++

		members := []protocol.Member{}
		if room, ok := h.rooms[req.RoomID]; ok {
			members = room.Members()
		}
		h.send(client, protocol.QueryResponse{Members: members})
	})
}

// Members returns a snapshot of a room's members.
func (h *Hub) Members(roomID string) ([]protocol.Member, error) {
	var (
		members []protocol.Member
		err     error
	)
	if doErr := h.do(func() {
		room, ok := h.rooms[roomID]
		if !ok {
			err = newRoomNotFoundError(roomID)
			return
		}
		members = room.Members()
	}); doErr != nil {
		return nil, doErr
	}
	return members, err
}

// Sweep deletes every room without members and returns how many it removed.
func (h *Hub) Sweep() (int, error) {
	var n int
	err := h.do(func() {
		n = h.sweep()
	})
	return n, err
}

func (h *Hub) sweep() int {
	n := 0
	for _, room := range h.rooms {
		if room.Empty() {
			h.evict(room)
			n++
		}
	}
	return n
}

// evict deletes the room and unbinds any connection still attached to it.
func (h *Hub) evict(room *Room) {
	for _, c := range room.Clients() {
		if h.conns[c.ID] == room.ID() {
			delete(h.conns, c.ID)
		}
	}
	delete(h.rooms, room.ID())
	h.roomsEvicted++
	h.log(LogTypeRoom, LogLevelDebug, "Room %s removed", room.ID())
}

// ===== DELIVERY =====

func (h *Hub) broadcast(room *Room, e protocol.Event) {
	frame, err := protocol.Encode(e)
	if err != nil {
		h.log(LogTypeError, LogLevelError, "Encode %s for room %s: %v", e.Kind(), room.ID(), err)
		return
	}

	clients := room.Clients()
	for _, c := range clients {
		h.enqueue(c, frame)
	}
	h.log(LogTypeBroadcast, LogLevelDebug, "%s to room %s (%d clients)", e.Kind(), room.ID(), len(clients))
}

func (h *Hub) send(client *Client, e protocol.Event) {
	frame, err := protocol.Encode(e)
	if err != nil {
		h.log(LogTypeError, LogLevelError, "Encode %s for %s: %v", e.Kind(), client.ID, err)
		return
	}
	h.enqueue(client, frame)
}

// enqueue never blocks the hub loop. A client whose buffer is full is queued
// for removal once the current operation completes.
func (h *Hub) enqueue(client *Client, frame []byte) {
	if _, ok := h.clients[client.ID]; !ok {
		return
	}

	select {
	case client.MessageChan <- frame:
		h.framesSent++
	default:
		h.framesDropped++
		h.dropped = append(h.dropped, client.ID)
		h.log(LogTypeClient, LogLevelWarn, "Client %s is too slow, disconnecting", client.ID)
	}
}

func (h *Hub) flushDropped() {
	for len(h.dropped) > 0 {
		id := h.dropped[0]
		h.dropped = h.dropped[1:]
		h.removeClient(id)
	}
}

func (h *Hub) shutdown() {
	for id, client := range h.clients {
		close(client.MessageChan)
		delete(h.clients, id)
	}
	clear(h.conns)
	clear(h.rooms)
	h.dropped = nil
	h.log(LogTypeServer, LogLevelInfo, "Hub stopped")
}

func (h *Hub) untilNextSweep() time.Duration {
	now := h.now()
	return nextSweep(now, h.config.SweepHour, h.config.SweepMinute).Sub(now)
}

// nextSweep returns the first hour:minute strictly after now, in now's
// location.
func nextSweep(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (h *Hub) log(logType LogType, level LogLevel, msg string, args ...interface{}) {
	h.logger.log(logType, level, msg, args...)
}
