package ws

import "encoding/json"

// Client→server event names.
const (
	evJoinRoom   = "join-room"
	evGameAction = "game-action"
	evChat       = "chat-message"
	evAnalytics  = "analytics"
	evLeaveRoom  = "leave-room"
)

// Analytics kinds.
const (
	kindSwipe      = "swipe"
	kindPlayTime   = "play-time"
	kindEngagement = "engagement"
)

// clientEvent is the inbound envelope: a type tag plus an opaque payload.
type clientEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type joinRequest struct {
	RoomID      string `json:"roomId"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar"`
}

type chatRequest struct {
	Text string `json:"text"`
}

// actionEnvelope pulls out the fields the room layer understands; the rest
// of the payload stays opaque.
type actionEnvelope struct {
	Type  string   `json:"type"`
	Score *float64 `json:"score"`
}

type analyticsEvent struct {
	Kind    string         `json:"kind"`
	GameID  string         `json:"gameId"`
	Action  string         `json:"action"`
	Seconds float64        `json:"seconds"`
	Fields  map[string]any `json:"fields"`
}
