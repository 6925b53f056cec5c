package ws

import (
	"context"
	"encoding/json"

	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MAIDENMI/Tinder4Games/internal/app"
)

// Frame is one room event crossing instances. Origin tags the publisher so
// an instance skips frames it already delivered locally.
type Frame struct {
	Origin  string `json:"origin"`
	RoomID  string `json:"roomId"`
	Payload []byte `json:"payload"`
}

// Bus fans room events out to peer instances over redis pub/sub. Delivery
// is fire-and-forget, same as the local path.
type Bus struct {
	rdb *redis.Client
	log *slog.Logger
	id  string // this instance
}

// NewBus connects to redis and verifies connectivity
func NewBus(ctx context.Context, cfg app.Config, log *slog.Logger) (*Bus, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Bus{rdb: rdb, log: log, id: uuid.NewString()}, nil
}

// Publish sends a frame to the redis channel for its room
func (b *Bus) Publish(ctx context.Context, f Frame) error {
	f.Origin = b.id
	raw, _ := json.Marshal(f)
	return b.rdb.Publish(ctx, channel(f.RoomID), raw).Err()
}

// Subscribe listens to all room channels and invokes fn for each frame
// published by another instance.
func (b *Bus) Subscribe(ctx context.Context, fn func(Frame)) {
	pubsub := b.rdb.PSubscribe(ctx, channel("*"))
	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			_ = pubsub.Close()
			return
		case msg := <-ch:
			var f Frame
			_ = json.Unmarshal([]byte(msg.Payload), &f)
			if f.RoomID != "" && f.Origin != b.id {
				fn(f)
			}
		}
	}
}

// Close shuts down the redis connection
func (b *Bus) Close() { _ = b.rdb.Close() }

// channel namespacing for room pub/sub
func channel(roomID string) string { return "room:" + roomID }
