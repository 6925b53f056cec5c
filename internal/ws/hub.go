package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/MAIDENMI/Tinder4Games/internal/analytics"
	"github.com/MAIDENMI/Tinder4Games/internal/app"
	"github.com/MAIDENMI/Tinder4Games/internal/game"
	"github.com/MAIDENMI/Tinder4Games/pkg/metrics"
)

// Hub is the connection registry: it owns every open session, hands each a
// fresh id, and routes frames between sessions and the room store. It is the
// game.Notifier for the store.
type Hub struct {
	log   *slog.Logger
	cfg   app.Config
	bus   *Bus // nil in single-instance mode
	stats *analytics.Aggregator
	store *game.Store

	mu       sync.RWMutex
	sessions map[string]*Conn
}

// NewHub sets up the registry and the room store behind it.
func NewHub(logger *slog.Logger, cfg app.Config, bus *Bus, stats *analytics.Aggregator) *Hub {
	h := &Hub{log: logger, cfg: cfg, bus: bus, stats: stats, sessions: map[string]*Conn{}}
	h.store = game.NewStore(logger, h)
	return h
}

// Store exposes the room store for the reporting surface.
func (h *Hub) Store() *game.Store { return h.store }

// SessionCount reports currently open sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Run forwards bus frames from peer instances to local room members.
func (h *Hub) Run(ctx context.Context) {
	if h.bus != nil {
		go h.bus.Subscribe(ctx, func(f Frame) {
			h.deliver(h.store.Members(f.RoomID), f.Payload)
		})
	}
	<-ctx.Done()
}

// ServeWS handles a new /ws connection for its whole lifetime.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conn, err := Accept(w, r)
	if err != nil {
		h.log.Error("ws.accept", "err", err)
		return
	}

	c := NewConn(conn, uuid.NewString(), h.cfg.WSSendBuffer)
	h.register(c)
	h.log.Debug("ws.connect", "session", c.ID())

	// Outbound writer
	go c.WriteLoop(ctx)

	// Inbound reader
	for {
		payload, ok := c.Read(ctx)
		if !ok {
			break
		}
		h.dispatch(c, payload)
	}

	h.disconnect(c)
	_ = c.Close()
}

// dispatch routes one inbound frame. Bad frames are dropped, never answered.
func (h *Hub) dispatch(c *Conn, raw []byte) {
	var ev clientEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		h.log.Debug("ws.frame.bad", "session", c.ID(), "err", err)
		return
	}

	switch ev.Type {
	case evJoinRoom:
		var req joinRequest
		if err := json.Unmarshal(ev.Data, &req); err != nil || req.RoomID == "" {
			h.log.Debug("ws.join.bad", "session", c.ID())
			return
		}
		// A session lives in at most one room: joining leaves the old one.
		if prev := c.Room(); prev != "" {
			h.store.Leave(prev, c.ID())
		}
		c.SetProfile(req.DisplayName, req.Avatar)
		snap := h.store.Join(req.RoomID, game.Member{
			SessionID: c.ID(),
			Name:      req.DisplayName,
			Avatar:    req.Avatar,
			JoinedAt:  time.Now(),
		})
		c.SetRoom(req.RoomID)
		h.Unicast(c.ID(), game.Event{Type: game.EventRoomJoined, Data: snap})

	case evGameAction:
		roomID := c.Room()
		if roomID == "" {
			return
		}
		var env actionEnvelope
		if err := json.Unmarshal(ev.Data, &env); err != nil {
			h.log.Debug("ws.action.bad", "session", c.ID(), "err", err)
			return
		}
		h.store.ApplyAction(roomID, c.ID(), game.Action{Type: env.Type, Score: env.Score, Raw: ev.Data})

	case evChat:
		roomID := c.Room()
		if roomID == "" {
			// not in any room, nowhere to send it
			return
		}
		var req chatRequest
		if err := json.Unmarshal(ev.Data, &req); err != nil || req.Text == "" {
			return
		}
		h.store.Chat(roomID, c.ID(), req.Text)

	case evAnalytics:
		var req analyticsEvent
		if err := json.Unmarshal(ev.Data, &req); err != nil {
			return
		}
		switch req.Kind {
		case kindSwipe:
			h.stats.RecordSwipe(c.ID(), req.GameID, req.Action)
		case kindPlayTime:
			h.stats.RecordPlayTime(c.ID(), req.GameID, req.Seconds)
		case kindEngagement:
			h.stats.MergeEngagement(c.ID(), req.Fields)
		}

	case evLeaveRoom:
		if roomID := c.Room(); roomID != "" {
			h.store.Leave(roomID, c.ID())
			c.SetRoom("")
		}

	default:
		h.log.Debug("ws.frame.unknown", "session", c.ID(), "type", ev.Type)
	}
}

// disconnect runs presence cleanup then drops the session from the registry.
// Safe against a leave-room that already emptied the membership.
func (h *Hub) disconnect(c *Conn) {
	if roomID := c.Room(); roomID != "" {
		h.store.Leave(roomID, c.ID())
		c.SetRoom("")
	}
	h.unregister(c.ID())
	h.log.Debug("ws.disconnect", "session", c.ID())
}

// Unicast delivers one event to one session (the join confirmation path).
func (h *Hub) Unicast(sessionID string, ev game.Event) {
	b, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("ws.encode", "type", ev.Type, "err", err)
		return
	}
	h.deliver([]string{sessionID}, b)
}

// Broadcast delivers an event to the given sessions in order, then hands the
// frame to the bus for peer instances.
func (h *Hub) Broadcast(roomID string, recipients []string, ev game.Event) {
	b, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("ws.encode", "type", ev.Type, "err", err)
		return
	}
	h.deliver(recipients, b)
	if h.bus != nil {
		if err := h.bus.Publish(context.Background(), Frame{RoomID: roomID, Payload: b}); err != nil {
			h.log.Error("bus.publish", "room", roomID, "err", err)
		}
	}
}

// deliver queues the frame per recipient. One full or vanished session loses
// the frame and the rest still get theirs.
func (h *Hub) deliver(sessionIDs []string, b []byte) {
	for _, id := range sessionIDs {
		h.mu.RLock()
		c := h.sessions[id]
		h.mu.RUnlock()
		if c == nil || !c.Send(b) {
			metrics.EventsDropped.Inc()
			h.log.Debug("ws.send.drop", "session", id)
			continue
		}
		metrics.EventsDelivered.Inc()
	}
}

func (h *Hub) register(c *Conn) {
	h.mu.Lock()
	h.sessions[c.ID()] = c
	h.mu.Unlock()
	metrics.ActiveSessions.Inc()
}

func (h *Hub) unregister(id string) {
	h.mu.Lock()
	_, ok := h.sessions[id]
	if ok {
		delete(h.sessions, id)
	}
	h.mu.Unlock()
	if ok {
		metrics.ActiveSessions.Dec()
	}
}

// Shutdown closes every open session; read loops unwind and clean up.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.sessions))
	for _, c := range h.sessions {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	for _, c := range conns {
		_ = c.Close()
	}
}
