package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

// Conn wraps one websocket session. The id is generated at accept time and
// lives until the connection closes; roomID tracks the session's current
// room explicitly (at most one).
type Conn struct {
	ws  *websocket.Conn
	id  string
	out chan []byte

	mu     sync.Mutex
	roomID string
	name   string
	avatar string
}

// Accept upgrades HTTP to websocket (allow all origins)
func Accept(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  []string{"*"},
		CompressionMode: websocket.CompressionDisabled,
	})
}

func NewConn(ws *websocket.Conn, id string, sendBuffer int) *Conn {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	return &Conn{ws: ws, id: id, out: make(chan []byte, sendBuffer)}
}

func (c *Conn) ID() string { return c.id }

// Room returns the session's current room id, empty when not in one.
func (c *Conn) Room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

func (c *Conn) SetRoom(roomID string) {
	c.mu.Lock()
	c.roomID = roomID
	c.mu.Unlock()
}

func (c *Conn) SetProfile(name, avatar string) {
	c.mu.Lock()
	c.name = name
	c.avatar = avatar
	c.mu.Unlock()
}

func (c *Conn) Profile() (name, avatar string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name, c.avatar
}

// Send queues a frame without blocking. Returns false when the queue is
// full; the frame is dropped, not retried.
func (c *Conn) Send(b []byte) bool {
	select {
	case c.out <- b:
		return true
	default:
		return false
	}
}

// Read blocks until it receives a text/binary message.
// Returns false if the connection is closed.
func (c *Conn) Read(ctx context.Context) ([]byte, bool) {
	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			return nil, false
		}
		if typ == websocket.MessageText || typ == websocket.MessageBinary {
			return data, true
		}
	}
}

// WriteLoop sends outbound frames plus periodic pings.
// Exits when ctx is cancelled.
func (c *Conn) WriteLoop(ctx context.Context) {
	t := time.NewTicker(20 * time.Second)
	defer t.Stop()

	for {
		select {
		case b := <-c.out:
			_ = c.ws.Write(ctx, websocket.MessageText, b)
		case <-t.C:
			_ = c.ws.Ping(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Close closes the WS connection normally
func (c *Conn) Close() error { return c.ws.Close(websocket.StatusNormalClosure, "bye") }
