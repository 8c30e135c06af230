// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Filipe Johansson

package mdcollab

import (
	"time"
)

type RoomStat struct {
	ID          string    `json:"id"`
	MemberCount int       `json:"member_count"`
	ClientCount int       `json:"client_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type HubStats struct {
	// Connections
	ActiveConnections int    `json:"active_connections"`
	TotalConnections  uint64 `json:"total_connections"` // history
	BoundConnections  int    `json:"bound_connections"` // connections attached to a room

	// Events
	EventsReceived uint64 `json:"events_received"`
	FramesSent     uint64 `json:"frames_sent"`
	FramesDropped  uint64 `json:"frames_dropped"`

	// Rooms
	TotalRooms   int                 `json:"total_rooms"`
	TotalMembers int                 `json:"total_members"`
	RoomsEvicted uint64              `json:"rooms_evicted"`
	Rooms        map[string]RoomStat `json:"rooms"`

	Uptime    time.Duration `json:"uptime"`
	Timestamp time.Time     `json:"timestamp"`
}

// Stats returns a consistent snapshot of the hub counters.
func (h *Hub) Stats() (HubStats, error) {
	var s HubStats
	err := h.do(func() {
		now := h.now()
		s = HubStats{
			ActiveConnections: len(h.clients),
			TotalConnections:  h.totalConnections,
			BoundConnections:  len(h.conns),
			EventsReceived:    h.eventsReceived,
			FramesSent:        h.framesSent,
			FramesDropped:     h.framesDropped,
			TotalRooms:        len(h.rooms),
			RoomsEvicted:      h.roomsEvicted,
			Rooms:             make(map[string]RoomStat, len(h.rooms)),
			Uptime:            now.Sub(h.startTime),
			Timestamp:         now,
		}
		for id, room := range h.rooms {
			s.TotalMembers += room.Len()
			s.Rooms[id] = RoomStat{
				ID:          id,
				MemberCount: room.Len(),
				ClientCount: len(room.clients),
				CreatedAt:   room.CreatedAt(),
			}
		}
	})
	return s, err
}
