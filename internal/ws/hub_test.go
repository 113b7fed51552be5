package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"flyte-sync/internal/models"
	"flyte-sync/internal/store"
)

func TestHubAddAndRemove(t *testing.T) {
	hub := NewHub()

	require.True(t, hub.Add(nil, ConnInfo{ConnID: "c1"}))
	require.Equal(t, 1, hub.Len())

	hub.Remove(nil)
	require.Equal(t, 0, hub.Len())
}

func TestHubCloseRejectsNewClients(t *testing.T) {
	hub := NewHub()
	hub.Close()

	require.False(t, hub.Add(nil, ConnInfo{ConnID: "c1"}))
	require.Equal(t, 0, hub.Len())
}

func newStreamStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "flyte.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func dialStream(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestRoomsStreamPushesInitialAndUpdates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	st := newStreamStore(t)
	hub := NewHub()
	defer hub.Close()

	router := gin.New()
	router.GET("/ws/rooms", NewRoomsStreamHandler(hub, st).Handle)
	srv := httptest.NewServer(router)
	defer srv.Close()

	conn := dialStream(t, srv, "/ws/rooms")

	var event models.RoomsEvent
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &event))
	require.Equal(t, "rooms", event.Type)
	require.Empty(t, event.Rooms)

	require.NoError(t, st.Tx(context.Background(), func(txn *store.Txn) error {
		return txn.UpsertRoom(models.Room{ID: "r1", Name: "Paris", Type: models.RoomTypeDestination})
	}))

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, raw, err = conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &event))
	require.Len(t, event.Rooms, 1)
	require.Equal(t, "r1", event.Rooms[0].ID)
}

func TestRoomMessagesStreamUnknownRoom(t *testing.T) {
	gin.SetMode(gin.TestMode)
	st := newStreamStore(t)
	hub := NewHub()
	defer hub.Close()

	router := gin.New()
	router.GET("/ws/rooms/:room_id", NewRoomMessagesStreamHandler(hub, st).Handle)
	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/rooms/nope"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, 404, resp.StatusCode)
}

func TestRoomMessagesStreamDelivers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	st := newStreamStore(t)
	hub := NewHub()
	defer hub.Close()

	ctx := context.Background()
	require.NoError(t, st.Tx(ctx, func(txn *store.Txn) error {
		return txn.UpsertRoom(models.Room{ID: "r1", Name: "Paris", Type: models.RoomTypeDestination})
	}))

	router := gin.New()
	router.GET("/ws/rooms/:room_id", NewRoomMessagesStreamHandler(hub, st).Handle)
	srv := httptest.NewServer(router)
	defer srv.Close()

	conn := dialStream(t, srv, "/ws/rooms/r1")

	var event models.RoomMessagesEvent
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &event))
	require.Equal(t, "messages", event.Type)
	require.Empty(t, event.Messages)

	require.NoError(t, st.Tx(ctx, func(txn *store.Txn) error {
		_, err := txn.InsertMessageIfAbsent(models.Message{
			ID: "m1", Text: "bonjour", Timestamp: 100, RoomID: "r1",
			SenderID: "u1", SenderName: "Alice",
		})
		return err
	}))

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, raw, err = conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &event))
	require.Len(t, event.Messages, 1)
	require.Equal(t, "m1", event.Messages[0].ID)
}

func TestClientDisconnectReleasesSubscription(t *testing.T) {
	gin.SetMode(gin.TestMode)
	st := newStreamStore(t)
	hub := NewHub()
	defer hub.Close()

	router := gin.New()
	router.GET("/ws/rooms", NewRoomsStreamHandler(hub, st).Handle)
	srv := httptest.NewServer(router)
	defer srv.Close()

	conn := dialStream(t, srv, "/ws/rooms")

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, 1, hub.Len())

	conn.Close()
	require.Eventually(t, func() bool { return hub.Len() == 0 },
		3*time.Second, 10*time.Millisecond)
}
