package store

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"flyte-sync/internal/models"
)

// Txn is the handle passed to Tx callbacks. All writes happen here so
// observers can be notified per touched table after commit.
type Txn struct {
	tx      *sqlx.Tx
	touched map[string]bool
}

// ReplaceUser atomically replaces the single local user row. Any prior
// account is destroyed, never updated in place.
func (t *Txn) ReplaceUser(user models.User) error {
	if user.ID == "" {
		return fmt.Errorf("%w: user id is empty", ErrConstraintViolation)
	}
	if _, err := t.tx.Exec(`DELETE FROM users`); err != nil {
		return err
	}
	_, err := t.tx.Exec(
		`INSERT INTO users (id, name, email, profile_picture_url, token) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.Email, user.ProfilePictureURL, user.Token,
	)
	if err != nil {
		return err
	}
	t.touched[tableUsers] = true
	return nil
}

// DeleteUser removes the local user row, if any.
func (t *Txn) DeleteUser() error {
	if _, err := t.tx.Exec(`DELETE FROM users`); err != nil {
		return err
	}
	t.touched[tableUsers] = true
	return nil
}

// UpsertRoom creates the room or updates its mutable fields in place.
// The row is never recreated, so message relations survive resyncs. The
// local last_message_timestamp only moves forward.
func (t *Txn) UpsertRoom(room models.Room) error {
	if room.ID == "" {
		return fmt.Errorf("%w: room id is empty", ErrConstraintViolation)
	}
	_, err := t.tx.Exec(
		`INSERT INTO rooms (id, name, description, type, expiry_time, created_at, updated_at, last_message_timestamp)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
            name = excluded.name,
            description = excluded.description,
            type = excluded.type,
            expiry_time = excluded.expiry_time,
            created_at = excluded.created_at,
            updated_at = excluded.updated_at,
            last_message_timestamp = max(rooms.last_message_timestamp, excluded.last_message_timestamp)`,
		room.ID, room.Name, room.Description, room.Type,
		room.ExpiryTime, room.CreatedAt, room.UpdatedAt, room.LastMessageTimestamp,
	)
	if err != nil {
		return err
	}
	t.touched[tableRooms] = true
	return nil
}

// InsertMessageIfAbsent inserts the message unless a row with its id
// already exists. This is the dedup boundary between reconciler backfill
// and realtime delivery: existing messages are never overwritten. On
// insert the parent room's last_message_timestamp is bumped when the
// message is newer.
func (t *Txn) InsertMessageIfAbsent(msg models.Message) (bool, error) {
	if msg.ID == "" || msg.RoomID == "" {
		return false, fmt.Errorf("%w: message id and room id are required", ErrConstraintViolation)
	}

	var exists int
	if err := t.tx.Get(&exists, `SELECT COUNT(1) FROM rooms WHERE id = ?`, msg.RoomID); err != nil {
		return false, err
	}
	if exists == 0 {
		return false, fmt.Errorf("%w: message %s references missing room %s", ErrConstraintViolation, msg.ID, msg.RoomID)
	}

	res, err := t.tx.Exec(
		`INSERT OR IGNORE INTO messages (id, text, timestamp, room_id, sender_id, sender_name, media_type, media_link)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.Text, msg.Timestamp, msg.RoomID,
		msg.SenderID, msg.SenderName, msg.MediaType, msg.MediaLink,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	if _, err := t.tx.Exec(
		`UPDATE rooms SET last_message_timestamp = max(last_message_timestamp, ?) WHERE id = ?`,
		msg.Timestamp, msg.RoomID,
	); err != nil {
		return false, err
	}

	t.touched[tableMessages] = true
	t.touched[tableRooms] = true
	return true, nil
}

// DeleteRoomsExcept drops every room whose id is not in keep, together
// with its messages (FK cascade). Used by full-replace syncs; returns
// the number of rooms removed.
func (t *Txn) DeleteRoomsExcept(keep []string) (int64, error) {
	var (
		res   interface{ RowsAffected() (int64, error) }
		err   error
		query string
		args  []interface{}
	)
	if len(keep) == 0 {
		res, err = t.tx.Exec(`DELETE FROM rooms`)
	} else {
		query, args, err = sqlx.In(`DELETE FROM rooms WHERE id NOT IN (?)`, keep)
		if err != nil {
			return 0, err
		}
		res, err = t.tx.Exec(query, args...)
	}
	if err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		t.touched[tableRooms] = true
		t.touched[tableMessages] = true
	}
	return n, nil
}
