package models

// MediaType mirrors the backend's media type enum.
type MediaType string

const (
	MediaTypeText  MediaType = "TEXT"
	MediaTypeImage MediaType = "IMAGE"
	MediaTypeVideo MediaType = "VIDEO"
	MediaTypeFile  MediaType = "FILE"
)

// Message is a single chat message belonging to exactly one room.
// Messages are immutable once created and deduplicated by id.
type Message struct {
	ID         string  `db:"id" json:"id"`
	Text       string  `db:"text" json:"text"`
	Timestamp  int64   `db:"timestamp" json:"timestamp"`
	RoomID     string  `db:"room_id" json:"room_id"`
	SenderID   string  `db:"sender_id" json:"sender_id"`
	SenderName string  `db:"sender_name" json:"sender_name"`
	MediaType  *string `db:"media_type" json:"media_type,omitempty"`
	MediaLink  *string `db:"media_link" json:"media_link,omitempty"`
}
