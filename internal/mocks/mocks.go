package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"flyte-sync/internal/models"
	"flyte-sync/internal/sync"
)

// BackendClientMock doubles the REST client for reconciler and handler
// tests.
type BackendClientMock struct {
	mock.Mock
}

func (m *BackendClientMock) RoomsAndMessages(ctx context.Context, userID string) ([]models.RoomWithMessages, error) {
	args := m.Called(ctx, userID)
	var snapshot []models.RoomWithMessages
	if val := args.Get(0); val != nil {
		snapshot = val.([]models.RoomWithMessages)
	}
	return snapshot, args.Error(1)
}

func (m *BackendClientMock) RoomMessages(ctx context.Context, roomID string) ([]models.APIMessage, error) {
	args := m.Called(ctx, roomID)
	var msgs []models.APIMessage
	if val := args.Get(0); val != nil {
		msgs = val.([]models.APIMessage)
	}
	return msgs, args.Error(1)
}

func (m *BackendClientMock) CreateJourney(ctx context.Context, req models.JourneyRequest) (models.JourneyResponse, error) {
	args := m.Called(ctx, req)
	var resp models.JourneyResponse
	if val := args.Get(0); val != nil {
		resp = val.(models.JourneyResponse)
	}
	return resp, args.Error(1)
}

// SyncerMock doubles the reconciler for handler tests.
type SyncerMock struct {
	mock.Mock
}

func (m *SyncerMock) Sync(ctx context.Context, userID string) (sync.Summary, error) {
	args := m.Called(ctx, userID)
	var summary sync.Summary
	if val := args.Get(0); val != nil {
		summary = val.(sync.Summary)
	}
	return summary, args.Error(1)
}

func (m *SyncerMock) FullResync(ctx context.Context, userID string) (sync.Summary, error) {
	args := m.Called(ctx, userID)
	var summary sync.Summary
	if val := args.Get(0); val != nil {
		summary = val.(sync.Summary)
	}
	return summary, args.Error(1)
}

func (m *SyncerMock) SyncJourney(ctx context.Context, req models.JourneyRequest) (models.JourneyResponse, error) {
	args := m.Called(ctx, req)
	var resp models.JourneyResponse
	if val := args.Get(0); val != nil {
		resp = val.(models.JourneyResponse)
	}
	return resp, args.Error(1)
}

func (m *SyncerMock) RoomHistory(ctx context.Context, roomID string) (int, error) {
	args := m.Called(ctx, roomID)
	return args.Int(0), args.Error(1)
}

// ChannelMock doubles the realtime channel for handler tests.
type ChannelMock struct {
	mock.Mock
}

func (m *ChannelMock) Open(roomID, userID string) {
	m.Called(roomID, userID)
}

func (m *ChannelMock) Send(text, userID, roomID string) error {
	args := m.Called(text, userID, roomID)
	return args.Error(0)
}

func (m *ChannelMock) Close() {
	m.Called()
}
