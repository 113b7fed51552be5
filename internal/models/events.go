package models

// RoomsEvent is pushed to UI websocket clients whenever the room list
// changes.
type RoomsEvent struct {
	Type  string `json:"type"`
	Rooms []Room `json:"rooms"`
}

// RoomMessagesEvent is pushed to UI websocket clients whenever a room's
// message history changes.
type RoomMessagesEvent struct {
	Type     string    `json:"type"`
	RoomID   string    `json:"roomId"`
	Messages []Message `json:"messages"`
}

// StatusEvent reports the realtime channel's connection state.
type StatusEvent struct {
	Type  string `json:"type"`
	State string `json:"state"`
}
