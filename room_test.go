package mdcollab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FilipeJohansson/mdcollab/protocol"
)

func member(uid, conn string) protocol.Member {
	return protocol.NewMember(protocol.User{UID: uid, Name: uid}, conn, protocol.Pos{})
}

func TestNewRoom(t *testing.T) {
	room := NewRoom("doc1")

	assert.Equal(t, "doc1", room.ID())
	assert.True(t, room.Empty())
	assert.NotNil(t, room.Members())
	assert.Empty(t, room.Clients())
	assert.False(t, room.CreatedAt().IsZero())
}

func TestRoom_Members(t *testing.T) {
	room := NewRoom("doc1")

	assert.True(t, room.AddMember(member("a", "c1")))
	assert.True(t, room.AddMember(member("b", "c2")))
	assert.False(t, room.AddMember(member("a", "c3")))

	require.Equal(t, 2, room.Len())
	m, ok := room.Member("a")
	require.True(t, ok)
	assert.Equal(t, "c1", m.ConnectionID)

	assert.True(t, room.UpdatePos("b", protocol.Pos{Line: 2, Ch: 3}))
	assert.False(t, room.UpdatePos("ghost", protocol.Pos{}))
	m, _ = room.Member("b")
	assert.Equal(t, protocol.Pos{Line: 2, Ch: 3}, m.Pos)

	// callers get a copy
	snapshot := room.Members()
	snapshot[0].Name = "changed"
	m, _ = room.Member("a")
	assert.Equal(t, "a", m.Name)

	assert.False(t, room.RemoveMember("ghost"))
	assert.True(t, room.RemoveMember("a"))
	assert.Equal(t, []string{"b"}, uids(room.Members()))

	assert.False(t, room.RemoveMemberByConnection("c1"))
	assert.True(t, room.RemoveMemberByConnection("c2"))
	assert.True(t, room.Empty())
}

func TestRoom_KeepsJoinOrder(t *testing.T) {
	room := NewRoom("doc1")
	for _, uid := range []string{"c", "a", "b"} {
		room.AddMember(member(uid, "conn-"+uid))
	}
	room.RemoveMember("a")
	room.AddMember(member("a", "conn-a2"))

	assert.Equal(t, []string{"c", "b", "a"}, uids(room.Members()))
}

func TestRoom_Clients(t *testing.T) {
	room := NewRoom("doc1")
	c1 := NewClient("c1", nil, 1)
	c2 := NewClient("c2", nil, 1)

	room.AddClient(c1)
	room.AddClient(c2)
	room.AddClient(c1)

	assert.Len(t, room.Clients(), 2)
	assert.True(t, room.HasClient("c1"))

	assert.True(t, room.RemoveClient("c1"))
	assert.False(t, room.RemoveClient("c1"))
	assert.False(t, room.HasClient("c1"))
	assert.Equal(t, []*Client{c2}, room.Clients())
}
