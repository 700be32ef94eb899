package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hubFixture struct {
	t      *testing.T
	hub    *Hub
	server *httptest.Server
	conns  chan *Conn
}

func newHubFixture(t *testing.T) *hubFixture {
	t.Helper()

	f := &hubFixture{
		t:     t,
		hub:   NewHub(),
		conns: make(chan *Conn, 8),
	}

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user")
		wsConn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)

		conn := NewConn(userID, wsConn)
		f.hub.Register(conn)
		f.conns <- conn

		for {
			if _, err := conn.ReadEvent(); err != nil {
				conn.Close()
				return
			}
		}
	}))

	t.Cleanup(func() {
		f.hub.Close()
		f.server.Close()
	})
	return f
}

// connect dials a client connection for userID and returns both ends.
func (f *hubFixture) connect(userID string) (*websocket.Conn, *Conn) {
	f.t.Helper()

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "?user=" + userID
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(f.t, err)
	f.t.Cleanup(func() { client.Close() })

	select {
	case conn := <-f.conns:
		return client, conn
	case <-time.After(time.Second):
		f.t.Fatal("server connection never registered")
		return nil, nil
	}
}

func readEvent(t *testing.T, client *websocket.Conn) Event {
	t.Helper()
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event Event
	require.NoError(t, client.ReadJSON(&event))
	return event
}

func TestHubSendDeliversToUser(t *testing.T) {
	f := newHubFixture(t)
	client, _ := f.connect("u1")

	f.hub.Send("u1", NewEvent("match_result", map[string]bool{"result": true}))

	event := readEvent(t, client)
	assert.Equal(t, "match_result", event.Type)

	var payload map[string]bool
	require.NoError(t, json.Unmarshal(event.Data, &payload))
	assert.True(t, payload["result"])
}

func TestHubSendToOfflineUserDropped(t *testing.T) {
	f := newHubFixture(t)

	f.hub.Send("nobody", NewEvent("match_result", nil))
	assert.False(t, f.hub.IsConnected("nobody"))
}

func TestHubSupersedesOlderConnection(t *testing.T) {
	f := newHubFixture(t)
	first, firstConn := f.connect("u1")
	second, _ := f.connect("u1")

	// the superseded client is closed by the hub
	first.SetReadDeadline(time.Now().Add(2 * time.Second))
	var discard Event
	err := first.ReadJSON(&discard)
	assert.Error(t, err)

	// unregistering the stale conn must not evict the live one
	assert.False(t, f.hub.Unregister(firstConn))
	assert.True(t, f.hub.IsConnected("u1"))

	f.hub.Send("u1", NewEvent("introduce_each_user", nil))
	event := readEvent(t, second)
	assert.Equal(t, "introduce_each_user", event.Type)
}

func TestHubUnregisterCurrentConnection(t *testing.T) {
	f := newHubFixture(t)
	_, conn := f.connect("u1")

	assert.True(t, f.hub.IsConnected("u1"))
	assert.True(t, f.hub.Unregister(conn))
	assert.False(t, f.hub.IsConnected("u1"))
	assert.Equal(t, 0, f.hub.TotalClients())
}

func TestHubRoomScopedDelivery(t *testing.T) {
	f := newHubFixture(t)
	client1, _ := f.connect("u1")
	client2, _ := f.connect("u2")
	client3, _ := f.connect("u3")

	f.hub.JoinRoom("room-1", "u1")
	f.hub.JoinRoom("room-1", "u2")

	f.hub.SendRoom("room-1", "u1", NewEvent("offer", nil))

	event := readEvent(t, client2)
	assert.Equal(t, "offer", event.Type)

	// neither the sender nor the outsider hears anything
	for _, client := range []*websocket.Conn{client1, client3} {
		client.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
		var discard Event
		assert.Error(t, client.ReadJSON(&discard))
	}
}

func TestHubLeaveRoomStopsDelivery(t *testing.T) {
	f := newHubFixture(t)
	_, _ = f.connect("u1")
	client2, _ := f.connect("u2")

	f.hub.JoinRoom("room-1", "u1")
	f.hub.JoinRoom("room-1", "u2")
	f.hub.LeaveRoom("room-1", "u2")

	f.hub.SendRoom("room-1", "u1", NewEvent("ice", nil))

	client2.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	var discard Event
	assert.Error(t, client2.ReadJSON(&discard))
}
