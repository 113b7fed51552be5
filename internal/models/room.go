package models

// RoomType identifies which leg of a journey a room belongs to.
type RoomType string

const (
	RoomTypeSource      RoomType = "SOURCE"
	RoomTypeDestination RoomType = "DESTINATION"
	RoomTypeFlight      RoomType = "FLIGHT"
)

// Room is a chat channel scoped to one leg of a journey. All timestamps
// are epoch milliseconds.
type Room struct {
	ID                   string   `db:"id" json:"id"`
	Name                 string   `db:"name" json:"name"`
	Description          string   `db:"description" json:"description"`
	Type                 RoomType `db:"type" json:"type"`
	ExpiryTime           int64    `db:"expiry_time" json:"expiry_time"`
	CreatedAt            int64    `db:"created_at" json:"created_at"`
	UpdatedAt            int64    `db:"updated_at" json:"updated_at"`
	LastMessageTimestamp int64    `db:"last_message_timestamp" json:"last_message_timestamp"`
}

// Expired reports whether the room is past its expiry at the given epoch
// millis. Expired rooms are excluded from active views but never deleted.
func (r Room) Expired(nowMillis int64) bool {
	return r.ExpiryTime > 0 && r.ExpiryTime < nowMillis
}
