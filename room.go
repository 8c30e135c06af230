// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Filipe Johansson

package mdcollab

import (
	"time"

	"github.com/FilipeJohansson/mdcollab/protocol"
)

// Room is the presence state of one document: its members in join order and
// the connections that receive its broadcasts.
//
// A Room is not safe for concurrent use. Rooms are owned by a Hub and only
// touched from its run loop.
type Room struct {
	id        string
	members   []protocol.Member
	clients   map[string]*Client
	createdAt time.Time
}

func NewRoom(id string) *Room {
	return &Room{
		id:        id,
		clients:   make(map[string]*Client),
		createdAt: time.Now(),
	}
}

func (r *Room) ID() string {
	return r.id
}

func (r *Room) CreatedAt() time.Time {
	return r.createdAt
}

func (r *Room) Len() int {
	return len(r.members)
}

func (r *Room) Empty() bool {
	return len(r.members) == 0
}

// Members returns a copy of the member list. It is never nil.
func (r *Room) Members() []protocol.Member {
	out := make([]protocol.Member, len(r.members))
	copy(out, r.members)
	return out
}

func (r *Room) Member(uid string) (protocol.Member, bool) {
	if i := r.indexOf(uid); i >= 0 {
		return r.members[i], true
	}
	return protocol.Member{}, false
}

// AddMember appends m unless a member with the same uid is already present,
// in which case the existing entry is left untouched.
func (r *Room) AddMember(m protocol.Member) bool {
	if r.indexOf(m.UID) >= 0 {
		return false
	}
	r.members = append(r.members, m)
	return true
}

func (r *Room) UpdatePos(uid string, pos protocol.Pos) bool {
	i := r.indexOf(uid)
	if i < 0 {
		return false
	}
	r.members[i].Pos = pos
	return true
}

func (r *Room) RemoveMember(uid string) bool {
	i := r.indexOf(uid)
	if i < 0 {
		return false
	}
	r.members = append(r.members[:i], r.members[i+1:]...)
	return true
}

// RemoveMemberByConnection removes the member bound to connectionID.
func (r *Room) RemoveMemberByConnection(connectionID string) bool {
	for i, m := range r.members {
		if m.ConnectionID == connectionID {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Room) AddClient(client *Client) {
	r.clients[client.ID] = client
}

func (r *Room) RemoveClient(id string) bool {
	if _, ok := r.clients[id]; !ok {
		return false
	}
	delete(r.clients, id)
	return true
}

func (r *Room) HasClient(id string) bool {
	_, ok := r.clients[id]
	return ok
}

func (r *Room) Clients() []*Client {
	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

func (r *Room) indexOf(uid string) int {
	for i, m := range r.members {
		if m.UID == uid {
			return i
		}
	}
	return -1
}
