package websocket

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

// newTestServer upgrades every request and attaches it to hub
func newTestServer(t *testing.T, hub *Hub) string {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := hub.RegisterClient(conn, r.URL.Query().Get("user"))
		go client.WritePump()
		go client.ReadPump()
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestHubBroadcastsToEveryClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()
	url := newTestServer(t, hub)

	var conns []*websocket.Conn
	for _, user := range []string{"u1", "u2"} {
		conn, _, err := websocket.DefaultDialer.Dial(url+"?user="+user, nil)
		require.NoError(t, err)
		defer conn.Close()
		conns = append(conns, conn)
	}
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(Event{Type: "contract.created", Entity: "contract", ID: "c1", Data: map[string]string{"status": "open"}})

	for _, conn := range conns {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)

		var event Event
		require.NoError(t, json.Unmarshal(msg, &event))
		assert.Equal(t, "contract.created", event.Type)
		assert.Equal(t, "c1", event.ID)
		assert.False(t, event.At.IsZero())
	}
}

func TestHubUnregistersClosedClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()
	url := newTestServer(t, hub)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestPublishNeverBlocks(t *testing.T) {
	hub := NewHub() // Run is not started, so nothing drains the queue

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.Publish(Event{Type: "vehicle.updated", ID: "v1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full queue")
	}
	assert.Len(t, hub.broadcast, cap(hub.broadcast))

	hub.Stop()
	hub.Stop()
	hub.Publish(Event{Type: "vehicle.updated", ID: "v2"})
}
