package models

import "time"

// APIUser is the backend's nested user representation.
type APIUser struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Nickname          *string `json:"nickname,omitempty"`
	Email             string  `json:"email,omitempty"`
	ProfilePictureURL *string `json:"profilePictureUrl,omitempty"`
}

// DisplayName picks the sender name the way the app renders it.
func (u APIUser) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if u.Nickname != nil && *u.Nickname != "" {
		return *u.Nickname
	}
	return "Unknown"
}

// APIRoom is a room as serialized by the backend. Timestamps arrive as
// RFC3339 or zone-less ISO strings.
type APIRoom struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Description          string `json:"description"`
	Type                 string `json:"type"`
	ExpiryTime           string `json:"expiryTime"`
	CreatedAt            string `json:"createdAt"`
	UpdatedAt            string `json:"updatedAt"`
	LastMessageTimestamp string `json:"lastMessageTimestamp"`
}

// ToRoom converts the API representation to the stored entity.
func (r APIRoom) ToRoom() Room {
	return Room{
		ID:                   r.ID,
		Name:                 r.Name,
		Description:          r.Description,
		Type:                 RoomType(r.Type),
		ExpiryTime:           ParseTimestamp(r.ExpiryTime),
		CreatedAt:            ParseTimestamp(r.CreatedAt),
		UpdatedAt:            ParseTimestamp(r.UpdatedAt),
		LastMessageTimestamp: ParseTimestamp(r.LastMessageTimestamp),
	}
}

// APIMessage is a message as serialized by the backend, both on REST
// responses and on realtime frames.
type APIMessage struct {
	ID          string  `json:"id"`
	MessageText string  `json:"messageText"`
	CreatedAt   string  `json:"createdAt"`
	MediaType   string  `json:"mediaType"`
	MediaLink   *string `json:"mediaLink"`
	User        APIUser `json:"user"`
	RoomID      string  `json:"roomId"`
}

// ToMessage converts the API representation to the stored entity. The
// room id argument wins over the payload's own roomId, which older
// backend revisions omit.
func (m APIMessage) ToMessage(roomID string) Message {
	if roomID == "" {
		roomID = m.RoomID
	}
	msg := Message{
		ID:         m.ID,
		Text:       m.MessageText,
		Timestamp:  ParseTimestamp(m.CreatedAt),
		RoomID:     roomID,
		SenderID:   m.User.ID,
		SenderName: m.User.DisplayName(),
	}
	if m.MediaType != "" {
		mt := m.MediaType
		msg.MediaType = &mt
	}
	if m.MediaLink != nil && *m.MediaLink != "" {
		msg.MediaLink = m.MediaLink
	}
	return msg
}

// RoomWithMessages is one element of the rooms-and-messages snapshot.
type RoomWithMessages struct {
	Room     APIRoom      `json:"room"`
	Messages []APIMessage `json:"messages"`
}

// SendPayload is published to the broker's send destination.
type SendPayload struct {
	MessageText string    `json:"messageText"`
	UserID      string    `json:"userId"`
	RoomID      string    `json:"roomId"`
	MediaType   MediaType `json:"mediaType"`
	MediaLink   string    `json:"mediaLink"`
}

// JourneyRequest creates a journey (and its three rooms) upstream.
type JourneyRequest struct {
	Source        string `json:"source"`
	Destination   string `json:"destination"`
	DepartureTime string `json:"departureTime"`
	ArrivalTime   string `json:"arrivalTime"`
	FlightNumber  string `json:"flightNumber"`
	UserID        string `json:"userId"`
}

// JourneyResponse is the backend's reply to journey creation. Each of
// the three rooms is persisted through the reconciler's upsert path.
type JourneyResponse struct {
	ID              string  `json:"id"`
	Source          string  `json:"source"`
	Destination     string  `json:"destination"`
	DepartTime      string  `json:"departTime"`
	ArrivalTime     string  `json:"arrivalTime"`
	FlightNumber    string  `json:"flightNumber"`
	SourceRoom      APIRoom `json:"sourceRoom"`
	DestinationRoom APIRoom `json:"destinationRoom"`
	FlightRoom      APIRoom `json:"flightRoom"`
}

// Rooms returns the journey's rooms in a stable order.
func (j JourneyResponse) Rooms() []APIRoom {
	return []APIRoom{j.SourceRoom, j.DestinationRoom, j.FlightRoom}
}

// timestamp layouts seen across backend revisions. The zone-less layout
// is what Spring serializes for LocalDateTime; it is read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// ParseTimestamp converts a backend timestamp string to epoch millis.
// Empty or unparseable values map to zero.
func ParseTimestamp(s string) int64 {
	if s == "" {
		return 0
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().UnixMilli()
		}
	}
	return 0
}

// FormatTimestamp renders epoch millis back to RFC3339 UTC, used when
// echoing entities over the loopback API in backend-compatible form.
func FormatTimestamp(millis int64) string {
	return time.UnixMilli(millis).UTC().Format(time.RFC3339Nano)
}
