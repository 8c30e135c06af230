// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Filipe Johansson

// Package protocol defines the events exchanged between the relay and the
// session clients, and their wire encoding.
//
// Every frame is a JSON envelope carrying the event kind and its payload:
//
//	{"event": "SYNC", "data": {"roomId": "doc1", "uid": "a", "pos": {"line": 0, "ch": 5}, "doc": "hello"}}
//
// The same kind name is used in both directions with a different payload, so
// decoding is direction aware: DecodeRequest for frames read by the relay and
// DecodeBroadcast for frames read by a client.
package protocol

type Kind string

const (
	KindJoin  Kind = "JOIN"
	KindSync  Kind = "SYNC"
	KindLeave Kind = "LEAVE"
	KindFull  Kind = "FULL"
	KindQuery Kind = "QUERY"
)

// Pos is a 0-based cursor position.
type Pos struct {
	Line int `json:"line"`
	Ch   int `json:"ch"`
}

type User struct {
	UID       string `json:"uid"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarURL,omitempty"`
}

// Member is one user's presence record inside a room.
type Member struct {
	UID          string `json:"uid"`
	Name         string `json:"name"`
	AvatarURL    string `json:"avatarURL,omitempty"`
	ConnectionID string `json:"id"`
	Pos          Pos    `json:"pos"`
}

func NewMember(user User, connectionID string, pos Pos) Member {
	return Member{
		UID:          user.UID,
		Name:         user.Name,
		AvatarURL:    user.AvatarURL,
		ConnectionID: connectionID,
		Pos:          pos,
	}
}

func (m Member) User() User {
	return User{UID: m.UID, Name: m.Name, AvatarURL: m.AvatarURL}
}

// Event is implemented by every payload variant.
type Event interface {
	Kind() Kind
}

// ===== client -> server =====

type JoinRequest struct {
	RoomID string `json:"roomId"`
	User   User   `json:"user"`
	Pos    Pos    `json:"pos"`
}

type SyncRequest struct {
	RoomID string `json:"roomId"`
	UID    string `json:"uid"`
	Pos    Pos    `json:"pos"`
	Doc    string `json:"doc"`
}

type LeaveRequest struct {
	RoomID string `json:"roomId"`
	UID    string `json:"uid"`
}

type QueryRequest struct {
	RoomID string `json:"roomId"`
}

func (JoinRequest) Kind() Kind  { return KindJoin }
func (SyncRequest) Kind() Kind  { return KindSync }
func (LeaveRequest) Kind() Kind { return KindLeave }
func (QueryRequest) Kind() Kind { return KindQuery }

// ===== server -> client =====

// JoinBroadcast carries the room's member list and the user that just joined,
// so receivers can tell their own join apart from someone else's.
type JoinBroadcast struct {
	Members     []Member `json:"members"`
	JoiningUser User     `json:"joiningUser"`
}

// SyncBroadcast carries presence and, when Doc is non-nil, the full document
// text. From is the uid whose event produced the broadcast.
type SyncBroadcast struct {
	Members []Member `json:"members"`
	Doc     *string  `json:"doc,omitempty"`
	From    string   `json:"from,omitempty"`
}

// Full tells a requester the room is at capacity.
type Full struct{}

type QueryResponse struct {
	Members []Member `json:"members"`
}

func (JoinBroadcast) Kind() Kind { return KindJoin }
func (SyncBroadcast) Kind() Kind { return KindSync }
func (Full) Kind() Kind          { return KindFull }
func (QueryResponse) Kind() Kind { return KindQuery }
