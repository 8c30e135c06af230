package mdcollab

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FilipeJohansson/mdcollab/protocol"
)

func startTestServer(t *testing.T, options ...UniversalOption) (*Server, *httptest.Server) {
	t.Helper()

	options = append([]UniversalOption{WithLogger(&NullLogger{}, nil)}, options...)
	server, err := NewServer(options...)
	require.NoError(t, err)

	ts := httptest.NewServer(server.Router())
	t.Cleanup(func() {
		server.Handler().Close()
		ts.Close()
	})

	return server, ts
}

func dialTestServer(t *testing.T, ts *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()

	u := url.URL{Scheme: "ws", Host: ts.Listener.Addr().String(), Path: "/ws"}
	ws, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })

	return ws
}

func sendEvent(t *testing.T, ws *websocket.Conn, e protocol.Event) {
	t.Helper()
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, protocol.MustEncode(e)))
}

func readEvent(t *testing.T, ws *websocket.Conn) protocol.Event {
	t.Helper()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)

	ev, err := protocol.DecodeBroadcast(data)
	require.NoError(t, err)
	return ev
}

// readUntil skips events until one of kind arrives.
func readUntil(t *testing.T, ws *websocket.Conn, kind protocol.Kind) protocol.Event {
	t.Helper()

	for {
		if ev := readEvent(t, ws); ev.Kind() == kind {
			return ev
		}
	}
}

func joinRoom(t *testing.T, ws *websocket.Conn, room, uid string) {
	t.Helper()

	sendEvent(t, ws, protocol.JoinRequest{RoomID: room, User: protocol.User{UID: uid, Name: uid}})
	readUntil(t, ws, protocol.KindJoin)
	readUntil(t, ws, protocol.KindQuery)
}

func getMembers(t *testing.T, ts *httptest.Server, room string) (int, []protocol.Member) {
	t.Helper()

	resp, err := http.Get(ts.URL + "/rooms/" + room + "/members")
	require.NoError(t, err)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil
	}

	var body struct {
		RoomID  string            `json:"roomId"`
		Members []protocol.Member `json:"members"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, room, body.RoomID)

	return resp.StatusCode, body.Members
}

func TestCollaborationScenario(t *testing.T) {
	_, ts := startTestServer(t)

	a := dialTestServer(t, ts, nil)
	b := dialTestServer(t, ts, nil)

	joinRoom(t, a, "doc1", "a")

	sendEvent(t, b, protocol.JoinRequest{RoomID: "doc1", User: protocol.User{UID: "b", Name: "b"}})
	ev := readUntil(t, a, protocol.KindJoin).(protocol.JoinBroadcast)
	assert.Equal(t, []string{"a", "b"}, uids(ev.Members))
	assert.Equal(t, "b", ev.JoiningUser.UID)
	readUntil(t, b, protocol.KindQuery)
	readUntil(t, a, protocol.KindQuery)

	sendEvent(t, a, protocol.SyncRequest{RoomID: "doc1", UID: "a", Pos: protocol.Pos{Line: 0, Ch: 5}, Doc: "hello"})

	sync := readUntil(t, b, protocol.KindSync).(protocol.SyncBroadcast)
	require.NotNil(t, sync.Doc)
	assert.Equal(t, "hello", *sync.Doc)
	assert.Equal(t, protocol.Pos{Line: 0, Ch: 5}, sync.Members[0].Pos)
	readUntil(t, a, protocol.KindSync)

	sendEvent(t, b, protocol.LeaveRequest{RoomID: "doc1", UID: "b"})

	sync = readUntil(t, a, protocol.KindSync).(protocol.SyncBroadcast)
	assert.Nil(t, sync.Doc)
	assert.Equal(t, []string{"a"}, uids(sync.Members))
	query := readUntil(t, a, protocol.KindQuery).(protocol.QueryResponse)
	assert.Equal(t, []string{"a"}, uids(query.Members))

	status, members := getMembers(t, ts, "doc1")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"a"}, uids(members))

	require.NoError(t, a.Close())
	assert.Eventually(t, func() bool {
		status, _ := getMembers(t, ts, "doc1")
		return status == http.StatusNotFound
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRoomFull(t *testing.T) {
	_, ts := startTestServer(t, WithMaxParticipants(1))

	a := dialTestServer(t, ts, nil)
	b := dialTestServer(t, ts, nil)

	joinRoom(t, a, "doc1", "a")

	sendEvent(t, b, protocol.JoinRequest{RoomID: "doc1", User: protocol.User{UID: "b"}})
	assert.IsType(t, protocol.Full{}, readEvent(t, b))

	_, members := getMembers(t, ts, "doc1")
	assert.Equal(t, []string{"a"}, uids(members))
}

func TestAbruptDisconnect(t *testing.T) {
	_, ts := startTestServer(t)

	a := dialTestServer(t, ts, nil)
	b := dialTestServer(t, ts, nil)

	joinRoom(t, a, "doc1", "a")
	joinRoom(t, b, "doc1", "b")
	readUntil(t, a, protocol.KindQuery)

	require.NoError(t, b.Close())

	query := readUntil(t, a, protocol.KindQuery).(protocol.QueryResponse)
	assert.Equal(t, []string{"a"}, uids(query.Members))
}

func TestIdleTimeout(t *testing.T) {
	_, ts := startTestServer(t,
		WithIdleTimeout(100*time.Millisecond),
		WithPingPong(50*time.Millisecond, time.Second),
	)

	ws := dialTestServer(t, ts, nil)

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := ws.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	var closeErr *websocket.CloseError
	require.True(t, errors.As(err, &closeErr))
	assert.Equal(t, ErrIdleTimeout.Error(), closeErr.Text)
}

func TestEventRateLimit(t *testing.T) {
	_, ts := startTestServer(t, WithRateLimit(RateLimiterConfig{
		PerClientRate:          0.001,
		PerClientBurst:         1,
		PerIPRate:              100,
		PerIPBurst:             100,
		MaxRateLimitViolations: 2,
	}))

	ws := dialTestServer(t, ts, nil)
	sendEvent(t, ws, protocol.QueryRequest{RoomID: "doc1"})
	assert.IsType(t, protocol.QueryResponse{}, readEvent(t, ws))

	sendEvent(t, ws, protocol.QueryRequest{RoomID: "doc1"})
	sendEvent(t, ws, protocol.QueryRequest{RoomID: "doc1"})

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := ws.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseTryAgainLater), "got %v", err)
}

func TestMalformedFrameIsSkipped(t *testing.T) {
	var errorsSeen atomic.Int32
	_, ts := startTestServer(t, OnError(func(c *Client, err error) {
		errorsSeen.Add(1)
	}))

	ws := dialTestServer(t, ts, nil)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"event":"NOPE","data":{}}`)))
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`not json`)))

	sendEvent(t, ws, protocol.QueryRequest{RoomID: "doc1"})
	assert.IsType(t, protocol.QueryResponse{}, readEvent(t, ws))
	assert.Equal(t, int32(2), errorsSeen.Load())
}

func TestConnectAndDisconnectEvents(t *testing.T) {
	var connected, disconnected atomic.Int32
	_, ts := startTestServer(t,
		OnConnect(func(c *Client) error {
			connected.Add(1)
			return nil
		}),
		OnDisconnect(func(c *Client) {
			disconnected.Add(1)
		}),
	)

	ws := dialTestServer(t, ts, nil)
	assert.Eventually(t, func() bool {
		return connected.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, ws.Close())
	assert.Eventually(t, func() bool {
		return disconnected.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestOnConnectRejects(t *testing.T) {
	_, ts := startTestServer(t, OnConnect(func(c *Client) error {
		return errors.New("not welcome")
	}))

	ws := dialTestServer(t, ts, nil)
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := ws.ReadMessage()
	assert.Error(t, err)
}

func TestAllowedOrigins(t *testing.T) {
	_, ts := startTestServer(t, WithAllowedOrigins([]string{"http://allowed.example"}))

	u := url.URL{Scheme: "ws", Host: ts.Listener.Addr().String(), Path: "/ws"}

	_, resp, err := websocket.DefaultDialer.Dial(u.String(), http.Header{"Origin": {"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	ws := dialTestServer(t, ts, http.Header{"Origin": {"http://allowed.example"}})
	sendEvent(t, ws, protocol.QueryRequest{RoomID: "doc1"})
	assert.IsType(t, protocol.QueryResponse{}, readEvent(t, ws))
}

func TestMaxConnectionsPerIP(t *testing.T) {
	server, ts := startTestServer(t, WithMaxConnections(10, 1))

	dialTestServer(t, ts, nil)

	u := url.URL{Scheme: "ws", Host: ts.Listener.Addr().String(), Path: "/ws"}
	_, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	total, perIP := server.Handler().ConnectionStats()
	assert.Equal(t, 1, total)
	assert.Len(t, perIP, 1)
}

func TestMembersEndpoint(t *testing.T) {
	_, ts := startTestServer(t)

	status, _ := getMembers(t, ts, "missing")
	assert.Equal(t, http.StatusNotFound, status)

	resp, err := http.Get(ts.URL + "/rooms/missing/members")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestHealthEndpoint(t *testing.T) {
	_, ts := startTestServer(t)

	ws := dialTestServer(t, ts, nil)
	joinRoom(t, ws, "doc1", "a")

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status      string   `json:"status"`
		Connections int      `json:"connections"`
		Hub         HubStats `json:"hub"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 1, body.Connections)
	assert.Equal(t, 1, body.Hub.ActiveConnections)
	assert.Equal(t, 1, body.Hub.TotalRooms)
	assert.Equal(t, 1, body.Hub.TotalMembers)
}
