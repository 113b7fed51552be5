package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"flyte-sync/internal/mocks"
	"flyte-sync/internal/rest"
	syncpkg "flyte-sync/internal/sync"
)

func setupSyncRouter(handler *SyncHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "u1")
		c.Next()
	})
	r.POST("/sync", handler.Run)
	return r
}

func TestSyncRunsSnapshotMerge(t *testing.T) {
	syncer := new(mocks.SyncerMock)
	router := setupSyncRouter(NewSyncHandler(syncer))

	syncer.On("Sync", mock.Anything, "u1").
		Return(syncpkg.Summary{RoomsUpserted: 2, MessagesInserted: 5}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/sync", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"rooms_upserted":2,"messages_inserted":5,"rooms_deleted":0}`, rec.Body.String())
	syncer.AssertExpectations(t)
	syncer.AssertNotCalled(t, "FullResync", mock.Anything, mock.Anything)
}

func TestSyncFullQueryRunsFullResync(t *testing.T) {
	syncer := new(mocks.SyncerMock)
	router := setupSyncRouter(NewSyncHandler(syncer))

	syncer.On("FullResync", mock.Anything, "u1").
		Return(syncpkg.Summary{RoomsUpserted: 1, RoomsDeleted: 3}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/sync?full=true", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	syncer.AssertExpectations(t)
	syncer.AssertNotCalled(t, "Sync", mock.Anything, mock.Anything)
}

func TestSyncMapsBackendErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"network", rest.ErrNetwork, http.StatusBadGateway},
		{"parse", rest.ErrParse, http.StatusBadGateway},
		{"unauthorized", rest.ErrUnauthorized, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			syncer := new(mocks.SyncerMock)
			router := setupSyncRouter(NewSyncHandler(syncer))

			syncer.On("Sync", mock.Anything, "u1").Return(syncpkg.Summary{}, tc.err).Once()

			req := httptest.NewRequest(http.MethodPost, "/sync", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			require.Equal(t, tc.code, rec.Code)
			syncer.AssertExpectations(t)
		})
	}
}
