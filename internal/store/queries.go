package store

import (
	"context"
	"database/sql"
	"errors"

	"flyte-sync/internal/models"
)

// GetUser returns the single local user row.
func (s *Store) GetUser(ctx context.Context) (models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, `SELECT * FROM users LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	return user, err
}

// GetRoom returns a room by id.
func (s *Store) GetRoom(ctx context.Context, id string) (models.Room, error) {
	var room models.Room
	err := s.db.GetContext(ctx, &room, `SELECT * FROM rooms WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Room{}, ErrNotFound
	}
	return room, err
}

// GetMessage returns a message by id.
func (s *Store) GetMessage(ctx context.Context, id string) (models.Message, error) {
	var msg models.Message
	err := s.db.GetContext(ctx, &msg, `SELECT * FROM messages WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrNotFound
	}
	return msg, err
}

// ListRooms returns rooms ordered for the chat list: latest message
// first, id as tiebreak. Expired rooms are excluded unless includeExpired
// is set; they stay in the table either way.
func (s *Store) ListRooms(ctx context.Context, includeExpired bool, nowMillis int64) ([]models.Room, error) {
	query := `SELECT * FROM rooms`
	args := []interface{}{}
	if !includeExpired {
		query += ` WHERE expiry_time = 0 OR expiry_time >= ?`
		args = append(args, nowMillis)
	}
	query += ` ORDER BY last_message_timestamp DESC, id ASC`

	rooms := []models.Room{}
	err := s.db.SelectContext(ctx, &rooms, query, args...)
	return rooms, err
}

// ListRoomMessages returns a room's messages newest first; equal
// timestamps are broken by id for deterministic ordering.
func (s *Store) ListRoomMessages(ctx context.Context, roomID string) ([]models.Message, error) {
	msgs := []models.Message{}
	err := s.db.SelectContext(ctx, &msgs,
		`SELECT * FROM messages WHERE room_id = ? ORDER BY timestamp DESC, id ASC`, roomID)
	return msgs, err
}

// CountRooms returns the number of rooms in the replica.
func (s *Store) CountRooms(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(1) FROM rooms`)
	return n, err
}

// CountMessages returns the number of messages in the replica.
func (s *Store) CountMessages(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(1) FROM messages`)
	return n, err
}
