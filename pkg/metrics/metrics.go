package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gamerooms_active_sessions",
		Help: "Currently open websocket sessions.",
	})
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gamerooms_active_rooms",
		Help: "Rooms with at least one member.",
	})
	Swipes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamerooms_swipes_total",
		Help: "Swipe events recorded by the analytics aggregator.",
	})
	PlaySamples = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamerooms_play_time_samples_total",
		Help: "Play-time samples recorded by the analytics aggregator.",
	})
	ChatMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamerooms_chat_messages_total",
		Help: "Chat messages broadcast to rooms.",
	})
	EventsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamerooms_events_delivered_total",
		Help: "Outbound frames handed to a session send queue.",
	})
	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamerooms_events_dropped_total",
		Help: "Outbound frames dropped because a send queue was full or the session was gone.",
	})
)

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
