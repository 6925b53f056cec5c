package game

import (
	"encoding/json"
	"time"
)

// Server→client event names.
const (
	EventRoomJoined       = "room-joined"
	EventPlayerJoined     = "player-joined"
	EventPlayerLeft       = "player-left"
	EventGameStateChanged = "game-state-changed"
	EventGameUpdate       = "game-update"
	EventChatMessage      = "chat-message"
)

// Recognized game-action types. Anything else is relayed verbatim.
const (
	ActionStart = "start-game"
	ActionEnd   = "end-game"
)

// Event is one outbound frame before serialization.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Notifier delivers events to connected sessions. Delivery is best-effort
// and must never block: a slow recipient loses the frame, the room moves on.
type Notifier interface {
	Unicast(sessionID string, ev Event)
	Broadcast(roomID string, recipients []string, ev Event)
}

// Action is a client game-action after minimal decoding. Raw keeps the
// original payload so unrecognized action types can be relayed untouched.
type Action struct {
	Type  string
	Score *float64
	Raw   json.RawMessage
}

// ChatMessage is broadcast to the sender's room and never persisted.
type ChatMessage struct {
	Text      string    `json:"text"`
	Sender    string    `json:"sender"`
	SessionID string    `json:"sessionId"`
	Timestamp time.Time `json:"timestamp"`
}

// StateChange announces a phase transition; Scores rides along on finish.
type StateChange struct {
	Phase  Phase              `json:"phase"`
	Scores map[string]float64 `json:"scores,omitempty"`
}

// Update relays an opaque in-game action to the other members.
type Update struct {
	SourceSessionID string          `json:"sourceSessionId"`
	Action          json.RawMessage `json:"action"`
}

type leftPayload struct {
	SessionID string `json:"sessionId"`
}
