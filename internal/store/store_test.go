package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"flyte-sync/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "flyte.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRoom(id string, lastMessage int64) models.Room {
	return models.Room{
		ID:                   id,
		Name:                 "room " + id,
		Description:          "test room",
		Type:                 models.RoomTypeFlight,
		CreatedAt:            1000,
		UpdatedAt:            1000,
		LastMessageTimestamp: lastMessage,
	}
}

func testMessage(id, roomID string, ts int64) models.Message {
	return models.Message{
		ID:         id,
		Text:       "hello from " + id,
		Timestamp:  ts,
		RoomID:     roomID,
		SenderID:   "u1",
		SenderName: "Alice",
	}
}

func TestOpenCreatesEmptyTables(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rooms, err := s.CountRooms(ctx)
	require.NoError(t, err)
	require.Zero(t, rooms)

	msgs, err := s.CountMessages(ctx)
	require.NoError(t, err)
	require.Zero(t, msgs)

	_, err = s.GetUser(ctx)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTxRollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Tx(ctx, func(txn *Txn) error {
		require.NoError(t, txn.UpsertRoom(testRoom("r1", 0)))
		_, err := txn.InsertMessageIfAbsent(testMessage("m1", "missing-room", 10))
		return err
	})
	require.ErrorIs(t, err, ErrConstraintViolation)

	// The whole batch is discarded, including the valid room upsert.
	n, err := s.CountRooms(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestInsertMessageDedupByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Tx(ctx, func(txn *Txn) error {
		return txn.UpsertRoom(testRoom("r1", 0))
	}))

	var first, second bool
	require.NoError(t, s.Tx(ctx, func(txn *Txn) error {
		var err error
		first, err = txn.InsertMessageIfAbsent(testMessage("m1", "r1", 10))
		return err
	}))
	require.NoError(t, s.Tx(ctx, func(txn *Txn) error {
		var err error
		second, err = txn.InsertMessageIfAbsent(testMessage("m1", "r1", 10))
		return err
	}))

	require.True(t, first)
	require.False(t, second)

	n, err := s.CountMessages(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestLastMessageTimestampTracksMax(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Tx(ctx, func(txn *Txn) error {
		if err := txn.UpsertRoom(testRoom("r1", 0)); err != nil {
			return err
		}
		for _, msg := range []models.Message{
			testMessage("m1", "r1", 300),
			testMessage("m2", "r1", 100), // older, must not move the room backwards
			testMessage("m3", "r1", 200),
		} {
			if _, err := txn.InsertMessageIfAbsent(msg); err != nil {
				return err
			}
		}
		return nil
	}))

	room, err := s.GetRoom(ctx, "r1")
	require.NoError(t, err)
	require.EqualValues(t, 300, room.LastMessageTimestamp)
}

func TestUpsertRoomUpdatesInPlace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Tx(ctx, func(txn *Txn) error {
		return txn.UpsertRoom(testRoom("r1", 500))
	}))

	updated := testRoom("r1", 100) // stale server timestamp
	updated.Name = "renamed"
	updated.Type = models.RoomTypeSource
	require.NoError(t, s.Tx(ctx, func(txn *Txn) error {
		return txn.UpsertRoom(updated)
	}))

	room, err := s.GetRoom(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, "renamed", room.Name)
	require.Equal(t, models.RoomTypeSource, room.Type)
	// Monotonic: the stale snapshot must not rewind the room.
	require.EqualValues(t, 500, room.LastMessageTimestamp)

	n, err := s.CountRooms(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestReplaceUserIsAtomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Tx(ctx, func(txn *Txn) error {
		return txn.ReplaceUser(models.User{ID: "u1", Name: "Alice", Email: "a@example.com", Token: "t1"})
	}))
	require.NoError(t, s.Tx(ctx, func(txn *Txn) error {
		return txn.ReplaceUser(models.User{ID: "u2", Name: "Bob", Email: "b@example.com", Token: "t2"})
	}))

	user, err := s.GetUser(ctx)
	require.NoError(t, err)
	require.Equal(t, "u2", user.ID)
	require.Equal(t, "t2", user.Token)

	require.NoError(t, s.Tx(ctx, func(txn *Txn) error { return txn.DeleteUser() }))
	_, err = s.GetUser(ctx)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListRoomsOrderAndExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := int64(1_000_000)

	expired := testRoom("r-expired", 900)
	expired.ExpiryTime = now - 1

	active1 := testRoom("r-a", 500)
	active1.ExpiryTime = now + 1000
	active2 := testRoom("r-b", 700)
	active2.ExpiryTime = now + 1000

	require.NoError(t, s.Tx(ctx, func(txn *Txn) error {
		for _, r := range []models.Room{expired, active1, active2} {
			if err := txn.UpsertRoom(r); err != nil {
				return err
			}
		}
		return nil
	}))

	rooms, err := s.ListRooms(ctx, false, now)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	require.Equal(t, "r-b", rooms[0].ID)
	require.Equal(t, "r-a", rooms[1].ID)

	// Expired rooms are excluded from active views, not deleted.
	all, err := s.ListRooms(ctx, true, now)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestListRoomMessagesOrderWithIDTiebreak(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Tx(ctx, func(txn *Txn) error {
		if err := txn.UpsertRoom(testRoom("r1", 0)); err != nil {
			return err
		}
		for _, msg := range []models.Message{
			testMessage("m-b", "r1", 200),
			testMessage("m-a", "r1", 200),
			testMessage("m-c", "r1", 300),
		} {
			if _, err := txn.InsertMessageIfAbsent(msg); err != nil {
				return err
			}
		}
		return nil
	}))

	msgs, err := s.ListRoomMessages(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	require.Equal(t, "m-c", msgs[0].ID)
	require.Equal(t, "m-a", msgs[1].ID)
	require.Equal(t, "m-b", msgs[2].ID)
}

func TestDeleteRoomsExceptCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Tx(ctx, func(txn *Txn) error {
		for _, id := range []string{"r1", "r2"} {
			if err := txn.UpsertRoom(testRoom(id, 0)); err != nil {
				return err
			}
		}
		if _, err := txn.InsertMessageIfAbsent(testMessage("m1", "r1", 10)); err != nil {
			return err
		}
		_, err := txn.InsertMessageIfAbsent(testMessage("m2", "r2", 20))
		return err
	}))

	var deleted int64
	require.NoError(t, s.Tx(ctx, func(txn *Txn) error {
		var err error
		deleted, err = txn.DeleteRoomsExcept([]string{"r1"})
		return err
	}))
	require.EqualValues(t, 1, deleted)

	_, err := s.GetRoom(ctx, "r2")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetMessage(ctx, "m2")
	require.ErrorIs(t, err, ErrNotFound)

	// r1 and its message survive.
	_, err = s.GetMessage(ctx, "m1")
	require.NoError(t, err)
}
