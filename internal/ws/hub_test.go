package ws

import (
	"encoding/json"
	"fmt"
	"io"
	"testing"

	"log/slog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MAIDENMI/Tinder4Games/internal/analytics"
	"github.com/MAIDENMI/Tinder4Games/internal/app"
	"github.com/MAIDENMI/Tinder4Games/internal/game"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHub() *Hub {
	cfg := app.Config{WSSendBuffer: 16}
	return NewHub(testLogger(), cfg, nil, analytics.New())
}

// addConn registers a connection without a live websocket; dispatch and
// delivery only touch the outbound queue.
func addConn(h *Hub, id string) *Conn {
	c := NewConn(nil, id, h.cfg.WSSendBuffer)
	h.register(c)
	return c
}

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// recvFrame pops one queued outbound frame, failing if none is waiting.
func recvFrame(t *testing.T, c *Conn) frame {
	t.Helper()
	select {
	case b := <-c.out:
		var f frame
		require.NoError(t, json.Unmarshal(b, &f))
		return f
	default:
		t.Fatalf("no frame queued for session %s", c.ID())
		return frame{}
	}
}

func queued(c *Conn) int { return len(c.out) }

func clientFrame(t *testing.T, typ string, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	b, err := json.Marshal(clientEvent{Type: typ, Data: raw})
	require.NoError(t, err)
	return b
}

func TestBroadcastDeliversToListedSessionsOnly(t *testing.T) {
	h := newTestHub()
	a := addConn(h, "a")
	b := addConn(h, "b")
	c := addConn(h, "c")

	h.Broadcast("g1", []string{"a", "b"}, game.Event{Type: game.EventChatMessage})

	assert.Equal(t, 1, queued(a))
	assert.Equal(t, 1, queued(b))
	assert.Equal(t, 0, queued(c), "excluded session gets nothing")
}

func TestBroadcastSurvivesMissingSession(t *testing.T) {
	h := newTestHub()
	a := addConn(h, "a")

	h.Broadcast("g1", []string{"gone", "a"}, game.Event{Type: game.EventPlayerLeft})

	assert.Equal(t, 1, queued(a), "delivery continues past a vanished recipient")
}

func TestUnicastUnknownSessionIsNoop(t *testing.T) {
	h := newTestHub()
	h.Unicast("nobody", game.Event{Type: game.EventRoomJoined})
}

func TestSendDropsWhenQueueFull(t *testing.T) {
	c := NewConn(nil, "x", 1)

	assert.True(t, c.Send([]byte("one")))
	assert.False(t, c.Send([]byte("two")), "full queue drops, never blocks")
}

func TestDispatchJoinRoom(t *testing.T) {
	h := newTestHub()
	c := addConn(h, "a")

	h.dispatch(c, clientFrame(t, evJoinRoom, joinRequest{RoomID: "g1", DisplayName: "Ada", Avatar: "🚀"}))

	assert.Equal(t, "g1", c.Room())
	assert.Equal(t, 1, h.Store().RoomCount())

	f := recvFrame(t, c)
	assert.Equal(t, game.EventRoomJoined, f.Type)

	var snap game.Snapshot
	require.NoError(t, json.Unmarshal(f.Data, &snap))
	assert.Equal(t, "g1", snap.RoomID)
	assert.Equal(t, game.PhaseWaiting, snap.Phase)
	require.Len(t, snap.Members, 1)
	assert.Equal(t, "Ada", snap.Members[0].Name)
}

func TestDispatchJoinNotifiesPeers(t *testing.T) {
	h := newTestHub()
	a := addConn(h, "a")
	b := addConn(h, "b")

	h.dispatch(a, clientFrame(t, evJoinRoom, joinRequest{RoomID: "g1", DisplayName: "Ada"}))
	recvFrame(t, a) // a's own room-joined

	h.dispatch(b, clientFrame(t, evJoinRoom, joinRequest{RoomID: "g1", DisplayName: "Bob"}))

	f := recvFrame(t, a)
	assert.Equal(t, game.EventPlayerJoined, f.Type)
	var m game.Member
	require.NoError(t, json.Unmarshal(f.Data, &m))
	assert.Equal(t, "b", m.SessionID)

	fb := recvFrame(t, b)
	assert.Equal(t, game.EventRoomJoined, fb.Type)
}

func TestDispatchSecondJoinAutoLeaves(t *testing.T) {
	h := newTestHub()
	a := addConn(h, "a")
	b := addConn(h, "b")

	h.dispatch(a, clientFrame(t, evJoinRoom, joinRequest{RoomID: "g1", DisplayName: "Ada"}))
	h.dispatch(b, clientFrame(t, evJoinRoom, joinRequest{RoomID: "g1", DisplayName: "Bob"}))
	h.dispatch(a, clientFrame(t, evJoinRoom, joinRequest{RoomID: "g2", DisplayName: "Ada"}))

	assert.Equal(t, "g2", a.Room())
	assert.Equal(t, []string{"b"}, h.Store().Members("g1"), "stale membership cleaned up")
	assert.Equal(t, []string{"a"}, h.Store().Members("g2"))
}

func TestDispatchJoinWithoutRoomIDDropped(t *testing.T) {
	h := newTestHub()
	c := addConn(h, "a")

	h.dispatch(c, clientFrame(t, evJoinRoom, joinRequest{DisplayName: "Ada"}))

	assert.Equal(t, "", c.Room())
	assert.Equal(t, 0, h.Store().RoomCount())
	assert.Equal(t, 0, queued(c))
}

func TestDispatchGameActionReachesRoom(t *testing.T) {
	h := newTestHub()
	a := addConn(h, "a")
	b := addConn(h, "b")

	h.dispatch(a, clientFrame(t, evJoinRoom, joinRequest{RoomID: "g1", DisplayName: "Ada"}))
	h.dispatch(b, clientFrame(t, evJoinRoom, joinRequest{RoomID: "g1", DisplayName: "Bob"}))
	recvFrame(t, a) // room-joined
	recvFrame(t, a) // player-joined(b)
	recvFrame(t, b) // room-joined

	h.dispatch(a, clientFrame(t, evGameAction, map[string]any{"type": game.ActionStart}))

	fa := recvFrame(t, a)
	fb := recvFrame(t, b)
	assert.Equal(t, game.EventGameStateChanged, fa.Type)
	assert.Equal(t, game.EventGameStateChanged, fb.Type)

	var sc game.StateChange
	require.NoError(t, json.Unmarshal(fb.Data, &sc))
	assert.Equal(t, game.PhasePlaying, sc.Phase)
}

func TestDispatchGameActionWithoutRoomDropped(t *testing.T) {
	h := newTestHub()
	c := addConn(h, "a")

	h.dispatch(c, clientFrame(t, evGameAction, map[string]any{"type": game.ActionStart}))

	assert.Equal(t, 0, queued(c))
}

func TestDispatchChatWithoutRoomDropped(t *testing.T) {
	h := newTestHub()
	c := addConn(h, "a")

	h.dispatch(c, clientFrame(t, evChat, chatRequest{Text: "anyone?"}))

	assert.Equal(t, 0, queued(c), "no room, no broadcast")
}

func TestDispatchChatReachesWholeRoom(t *testing.T) {
	h := newTestHub()
	a := addConn(h, "a")
	b := addConn(h, "b")

	h.dispatch(a, clientFrame(t, evJoinRoom, joinRequest{RoomID: "g1", DisplayName: "Ada"}))
	h.dispatch(b, clientFrame(t, evJoinRoom, joinRequest{RoomID: "g1", DisplayName: "Bob"}))
	recvFrame(t, a)
	recvFrame(t, a)
	recvFrame(t, b)

	h.dispatch(b, clientFrame(t, evChat, chatRequest{Text: "gl hf"}))

	var msg game.ChatMessage
	f := recvFrame(t, a)
	assert.Equal(t, game.EventChatMessage, f.Type)
	require.NoError(t, json.Unmarshal(f.Data, &msg))
	assert.Equal(t, "gl hf", msg.Text)
	assert.Equal(t, "Bob", msg.Sender)

	fb := recvFrame(t, b)
	assert.Equal(t, game.EventChatMessage, fb.Type, "sender hears own chat")
}

func TestDispatchAnalytics(t *testing.T) {
	h := newTestHub()
	c := addConn(h, "a")

	h.dispatch(c, clientFrame(t, evAnalytics, analyticsEvent{Kind: kindSwipe, GameID: "game_1", Action: "like"}))
	h.dispatch(c, clientFrame(t, evAnalytics, analyticsEvent{Kind: kindPlayTime, GameID: "game_1", Seconds: 44}))
	h.dispatch(c, clientFrame(t, evAnalytics, analyticsEvent{Kind: kindEngagement, Fields: map[string]any{"depth": 3}}))

	totals := h.stats.Totals()
	assert.Equal(t, 1, totals.TotalSwipes)
	assert.Equal(t, 1, totals.TotalPlaySessions)
	assert.Equal(t, 1, totals.DistinctEngagementSessions)
}

func TestDispatchLeaveRoom(t *testing.T) {
	h := newTestHub()
	c := addConn(h, "a")

	h.dispatch(c, clientFrame(t, evJoinRoom, joinRequest{RoomID: "g1", DisplayName: "Ada"}))
	h.dispatch(c, clientFrame(t, evLeaveRoom, nil))

	assert.Equal(t, "", c.Room())
	assert.Equal(t, 0, h.Store().RoomCount())
}

func TestDispatchMalformedFrameIgnored(t *testing.T) {
	h := newTestHub()
	c := addConn(h, "a")

	h.dispatch(c, []byte(`{not json`))
	h.dispatch(c, clientFrame(t, "made-up-event", nil))

	assert.Equal(t, 0, queued(c))
}

func TestDisconnectCleansUpMembership(t *testing.T) {
	h := newTestHub()
	a := addConn(h, "a")
	b := addConn(h, "b")

	h.dispatch(a, clientFrame(t, evJoinRoom, joinRequest{RoomID: "g1", DisplayName: "Ada"}))
	h.dispatch(b, clientFrame(t, evJoinRoom, joinRequest{RoomID: "g1", DisplayName: "Bob"}))
	recvFrame(t, a)
	recvFrame(t, a)
	recvFrame(t, b)

	h.disconnect(a)

	assert.Equal(t, 1, h.SessionCount())
	assert.Equal(t, []string{"b"}, h.Store().Members("g1"))

	f := recvFrame(t, b)
	assert.Equal(t, game.EventPlayerLeft, f.Type)

	// second invocation changes nothing
	h.disconnect(a)
	assert.Equal(t, 1, h.SessionCount())
	assert.Equal(t, []string{"b"}, h.Store().Members("g1"))

	h.disconnect(b)
	assert.Equal(t, 0, h.SessionCount())
	assert.Equal(t, 0, h.Store().RoomCount(), "last disconnect deletes the room")
}

func TestDispatchManySessionsFanout(t *testing.T) {
	h := newTestHub()

	conns := make([]*Conn, 0, 5)
	for i := 0; i < 5; i++ {
		c := addConn(h, fmt.Sprintf("s%d", i))
		h.dispatch(c, clientFrame(t, evJoinRoom, joinRequest{RoomID: "g1", DisplayName: fmt.Sprintf("P%d", i)}))
		conns = append(conns, c)
	}

	// drain everything queued so far
	for _, c := range conns {
		for queued(c) > 0 {
			<-c.out
		}
	}

	h.dispatch(conns[0], clientFrame(t, evGameAction, map[string]any{"type": "taunt"}))

	assert.Equal(t, 0, queued(conns[0]), "opaque action skips the actor")
	for _, c := range conns[1:] {
		assert.Equal(t, 1, queued(c))
	}
}
