package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"flyte-sync/internal/mocks"
	"flyte-sync/internal/models"
	"flyte-sync/internal/store"
)

func newRoomsStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "flyte.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func setupRoomsRouter(handler *RoomsHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/rooms", handler.List)
	r.GET("/rooms/:room_id/messages", handler.Messages)
	return r
}

func seedRoom(t *testing.T, st *store.Store, room models.Room) {
	t.Helper()
	require.NoError(t, st.Tx(context.Background(), func(txn *store.Txn) error {
		return txn.UpsertRoom(room)
	}))
}

func TestListRoomsExcludesExpiredByDefault(t *testing.T) {
	st := newRoomsStore(t)
	now := time.Now().UnixMilli()
	seedRoom(t, st, models.Room{ID: "r-live", Name: "Paris", Type: models.RoomTypeDestination, ExpiryTime: now + 60_000})
	seedRoom(t, st, models.Room{ID: "r-gone", Name: "Old", Type: models.RoomTypeFlight, ExpiryTime: now - 60_000})

	router := setupRoomsRouter(NewRoomsHandler(st, new(mocks.SyncerMock)))

	req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Rooms []models.Room `json:"rooms"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Rooms, 1)
	require.Equal(t, "r-live", resp.Rooms[0].ID)

	req = httptest.NewRequest(http.MethodGet, "/rooms?all=true", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Rooms, 2)
}

func TestRoomMessagesUnknownRoom(t *testing.T) {
	router := setupRoomsRouter(NewRoomsHandler(newRoomsStore(t), new(mocks.SyncerMock)))

	req := httptest.NewRequest(http.MethodGet, "/rooms/nope/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoomMessagesNewestFirst(t *testing.T) {
	st := newRoomsStore(t)
	seedRoom(t, st, models.Room{ID: "r1", Name: "Paris", Type: models.RoomTypeDestination})
	require.NoError(t, st.Tx(context.Background(), func(txn *store.Txn) error {
		for _, m := range []models.Message{
			{ID: "m1", Text: "first", Timestamp: 100, RoomID: "r1", SenderID: "u1", SenderName: "Alice"},
			{ID: "m2", Text: "second", Timestamp: 200, RoomID: "r1", SenderID: "u2", SenderName: "Bob"},
		} {
			if _, err := txn.InsertMessageIfAbsent(m); err != nil {
				return err
			}
		}
		return nil
	}))

	router := setupRoomsRouter(NewRoomsHandler(st, new(mocks.SyncerMock)))

	req := httptest.NewRequest(http.MethodGet, "/rooms/r1/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Messages, 2)
	require.Equal(t, "m2", resp.Messages[0].ID)
	require.Equal(t, "m1", resp.Messages[1].ID)
}

func TestRoomMessagesRefreshPullsHistory(t *testing.T) {
	st := newRoomsStore(t)
	seedRoom(t, st, models.Room{ID: "r1", Name: "Paris", Type: models.RoomTypeDestination})

	syncer := new(mocks.SyncerMock)
	syncer.On("RoomHistory", mock.Anything, "r1").Return(4, nil).Once()

	router := setupRoomsRouter(NewRoomsHandler(st, syncer))

	req := httptest.NewRequest(http.MethodGet, "/rooms/r1/messages?refresh=true", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	syncer.AssertExpectations(t)
}
